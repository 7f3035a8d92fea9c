package main

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/riwart/taskr/internal/model"
)

// formValue accepts a JSON string or number as well as a plain form value,
// so numeric fields can be validated by the task service.
type formValue string

func (v *formValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(strings.TrimSpace(string(b)))
	return nil
}

func (v *formValue) UnmarshalParam(param string) error {
	*v = formValue(param)
	return nil
}

// RegisterDTO for creating a new account
type RegisterDTO struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

// LoginDTO for user authentication
type LoginDTO struct {
	Name     string `json:"name" form:"name"`
	Password string `json:"password" form:"password"`
}

// CreateTaskDTO for creating a new task
type CreateTaskDTO struct {
	Name     string    `json:"name" form:"name"`
	DueDate  formValue `json:"due_date" form:"due_date"`
	Priority formValue `json:"priority" form:"priority"`
}

// TaskListDTO splits the visible tasks by status
type TaskListDTO struct {
	OpenTasks   []model.Task `json:"open_tasks"`
	ClosedTasks []model.Task `json:"closed_tasks"`
}

// MessageDTO is the body of every successful mutation
type MessageDTO struct {
	Message string      `json:"message"`
	Task    *model.Task `json:"task,omitempty"`
	User    *model.User `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// ErrorDTO is the body of every failed request
type ErrorDTO struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

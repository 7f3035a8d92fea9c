package task

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/riwart/taskr/internal/model"
)

const (
	MinPriority = 1
	MaxPriority = 10

	maxNameLen = 255

	msgRequired = "This field is required."
)

// AddInput holds the raw form values of a new task.
type AddInput struct {
	Name     string
	DueDate  string
	Priority string
}

type validInput struct {
	name     string
	dueDate  model.Date
	priority int
}

// validateAdd checks every field and reports all failures at once.
func validateAdd(in AddInput) (validInput, error) {
	var (
		out  validInput
		verr model.ValidationError
	)

	out.name = strings.TrimSpace(in.Name)
	switch {
	case out.name == "":
		verr.Add("name", msgRequired)
	case utf8.RuneCountInString(out.name) > maxNameLen:
		verr.Add("name", "Field cannot be longer than 255 characters.")
	}

	due := strings.TrimSpace(in.DueDate)
	if due == "" {
		verr.Add("due_date", msgRequired)
	} else if d, err := model.ParseDate(due); err != nil {
		verr.Add("due_date", "Not a valid date value (expected YYYY-MM-DD).")
	} else {
		out.dueDate = d
	}

	prio := strings.TrimSpace(in.Priority)
	if prio == "" {
		verr.Add("priority", msgRequired)
	} else if p, err := strconv.Atoi(prio); err != nil {
		verr.Add("priority", "Not a valid integer value.")
	} else if p < MinPriority || p > MaxPriority {
		verr.Add("priority", "Priority must be between 1 and 10.")
	} else {
		out.priority = p
	}

	if err := verr.Err(); err != nil {
		return validInput{}, err
	}
	return out, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/riwart/taskr/internal/identity"
	"github.com/riwart/taskr/internal/model"
	"github.com/riwart/taskr/internal/session"
	"github.com/riwart/taskr/internal/task"
)

const callerKey = "caller"

const (
	msgRegistered     = "Thanks for registering. Please login."
	msgDuplicate      = "That username and/or email already exists."
	msgBadCredentials = "Invalid username or password."
	msgLoginRequired  = "You need to login first."
	msgGoodbye        = "Goodbye!"
	msgTaskAdded      = "New entry was successfully posted. Thanks."
	msgTaskComplete   = "The task is complete. Nice."
	msgTaskIncomplete = "The task is incomplete."
	msgTaskDeleted    = "The task was deleted. Why not add a new one?"
	msgNotFound       = "That task does not exist."
	msgForbidden      = "You can only update or delete tasks that belong to you."
	msgAccessDenied   = "Access forbidden"
	msgInvalidInput   = "Please correct the highlighted fields."
	msgInternal       = "internal error"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the HTTP surface of the task tracker.
type Handler struct {
	users    *identity.Service
	tasks    *task.Service
	sessions *session.Manager
	db       Pinger
}

// NewHandler wires the services. db may be nil for the in-memory store.
func NewHandler(users *identity.Service, tasks *task.Service, sessions *session.Manager, db Pinger) *Handler {
	return &Handler{users: users, tasks: tasks, sessions: sessions, db: db}
}

// WithCaller resolves the session of every request once and stores the
// caller in the echo context.
func (h *Handler) WithCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := h.sessions.Authenticate(c.Request().Context(), c.Request())
		if err != nil {
			return h.fail(c, err)
		}
		c.Set(callerKey, caller)
		return next(c)
	}
}

// RequireLogin rejects anonymous callers.
func (h *Handler) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := session.RequireLogin(callerFrom(c)); err != nil {
			return h.fail(c, err)
		}
		return next(c)
	}
}

// CheckUserRole checks if the caller has the required role
func CheckUserRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if callerFrom(c).Role != role {
				return c.JSON(http.StatusForbidden, ErrorDTO{Error: msgAccessDenied})
			}
			return next(c)
		}
	}
}

func callerFrom(c echo.Context) model.Caller {
	if caller, ok := c.Get(callerKey).(model.Caller); ok {
		return caller
	}
	return model.Anonymous
}

// Health reports that the process is up
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether the store answers a ping
func (h *Handler) Readyz(c echo.Context) error {
	if h.db != nil {
		if err := h.db.Ping(c.Request().Context()); err != nil {
			c.Logger().Warnj(log.JSON{"msg": "store not ready", "error": err.Error()})
			return c.JSON(http.StatusServiceUnavailable, ErrorDTO{Error: "not ready"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

// Register creates a new account with the user role
func (h *Handler) Register(c echo.Context) error {
	var dto RegisterDTO
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: err.Error()})
	}

	u, err := h.users.Register(c.Request().Context(), identity.RegisterInput{
		Name:     dto.Name,
		Email:    dto.Email,
		Password: dto.Password,
		Confirm:  dto.Confirm,
	})
	if err != nil {
		return h.fail(c, err)
	}

	c.Logger().Infoj(log.JSON{"event": "user_registered", "user_id": u.ID})
	return c.JSON(http.StatusCreated, MessageDTO{Message: msgRegistered, User: &u})
}

// Login checks the credentials and starts a session
func (h *Handler) Login(c echo.Context) error {
	var dto LoginDTO
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: err.Error()})
	}

	u, ok, err := h.users.FindByCredentials(c.Request().Context(), dto.Name, dto.Password)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorDTO{Error: msgBadCredentials})
	}

	token, err := h.sessions.Login(c.Response(), u)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageDTO{Message: "Welcome " + u.Name + "!", Token: token})
}

// Logout ends the session of a logged in caller
func (h *Handler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Response())
	return c.JSON(http.StatusOK, MessageDTO{Message: msgGoodbye})
}

// ListTasks returns the tasks visible to the caller
func (h *Handler) ListTasks(c echo.Context) error {
	tasks, err := h.tasks.List(c.Request().Context(), callerFrom(c))
	if err != nil {
		return h.fail(c, err)
	}

	open, closed := task.Split(tasks)
	return c.JSON(http.StatusOK, TaskListDTO{OpenTasks: open, ClosedTasks: closed})
}

// CreateTask creates a new task owned by the caller
func (h *Handler) CreateTask(c echo.Context) error {
	var dto CreateTaskDTO
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: err.Error()})
	}

	created, err := h.tasks.Add(c.Request().Context(), callerFrom(c), task.AddInput{
		Name:     dto.Name,
		DueDate:  string(dto.DueDate),
		Priority: string(dto.Priority),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, MessageDTO{Message: msgTaskAdded, Task: &created})
}

// GetTask returns one task the caller may see
func (h *Handler) GetTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: "Invalid ID"})
	}

	found, err := h.tasks.Get(c.Request().Context(), callerFrom(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

// CompleteTask marks a task complete
func (h *Handler) CompleteTask(c echo.Context) error {
	return h.setStatus(c, model.StatusComplete, msgTaskComplete)
}

// IncompleteTask marks a task incomplete
func (h *Handler) IncompleteTask(c echo.Context) error {
	return h.setStatus(c, model.StatusIncomplete, msgTaskIncomplete)
}

func (h *Handler) setStatus(c echo.Context, status model.Status, msg string) error {
	id, err := taskID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: "Invalid ID"})
	}

	updated, err := h.tasks.SetStatus(c.Request().Context(), callerFrom(c), id, status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageDTO{Message: msg, Task: &updated})
}

// DeleteTask removes a task permanently
func (h *Handler) DeleteTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: "Invalid ID"})
	}

	if err := h.tasks.Delete(c.Request().Context(), callerFrom(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageDTO{Message: msgTaskDeleted})
}

// ListUsers retrieves all users (Admin only)
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func taskID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// fail maps domain errors to responses. Anything unexpected is logged and
// reported as a 500 without details.
func (h *Handler) fail(c echo.Context, err error) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, ErrorDTO{Error: msgInvalidInput, Fields: verr.Fields})
	case errors.Is(err, model.ErrDuplicateIdentity):
		return c.JSON(http.StatusConflict, ErrorDTO{Error: msgDuplicate})
	case errors.Is(err, model.ErrAuthRequired):
		return c.JSON(http.StatusUnauthorized, ErrorDTO{Error: msgLoginRequired})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorDTO{Error: msgNotFound})
	case errors.Is(err, model.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorDTO{Error: msgForbidden})
	}

	c.Logger().Errorj(log.JSON{
		"error":      err.Error(),
		"method":     c.Request().Method,
		"path":       c.Path(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
	return c.JSON(http.StatusInternalServerError, ErrorDTO{Error: msgInternal})
}

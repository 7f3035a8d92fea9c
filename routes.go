package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/riwart/taskr/internal/model"
)

// NewServer builds the echo instance with the shared middleware stack.
func NewServer(h *Handler, logger echo.Logger, requestTimeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if logger != nil {
		e.Logger = logger
	}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","method":"${method}",` +
			`"uri":"${uri}","status":${status},"latency":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())
	if requestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: requestTimeout,
		}))
	}
	e.Use(h.WithCaller)

	Route(e, h)
	return e
}

// Route registers all available routes
func Route(e *echo.Echo, h *Handler) {
	// Public routes
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Readyz)
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)

	e.GET("/logout", h.Logout, h.RequireLogin)
	e.POST("/logout", h.Logout, h.RequireLogin)

	// Task workflow for every logged in user
	tasks := e.Group("/tasks", h.RequireLogin)
	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.GET("/:id", h.GetTask)
	tasks.POST("/:id/complete", h.CompleteTask)
	tasks.POST("/:id/incomplete", h.IncompleteTask)
	tasks.DELETE("/:id", h.DeleteTask)

	// Routes for Admins
	admin := e.Group("/users", h.RequireLogin, CheckUserRole(model.RoleAdmin))
	admin.GET("", h.ListUsers)
}

// errorHandler renders framework errors (unknown route, bad method, panics)
// in the same shape as handler errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := msgInternal
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	} else {
		c.Logger().Error(err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorDTO{Error: msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

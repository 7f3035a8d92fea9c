package task

import (
	"context"

	"github.com/riwart/taskr/internal/model"
)

// ListFilter restricts a listing. A zero OwnerID lists every task.
type ListFilter struct {
	OwnerID int64
}

// AuthorizeFunc is called with the current row after it has been loaded
// and locked. A non-nil error aborts the write and is returned unchanged.
type AuthorizeFunc func(model.Task) error

type Repository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	List(ctx context.Context, filter ListFilter) ([]model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	UpdateStatus(ctx context.Context, id int64, authorize AuthorizeFunc, status model.Status) (model.Task, error)
	Delete(ctx context.Context, id int64, authorize AuthorizeFunc) error
}

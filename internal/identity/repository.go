package identity

import (
	"context"

	"github.com/riwart/taskr/internal/model"
)

// Repository stores users. Create must fail with model.ErrDuplicateIdentity
// when the name or the email is already taken.
type Repository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByName(ctx context.Context, name string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

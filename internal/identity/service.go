// Package identity registers users and checks their credentials.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/riwart/taskr/internal/model"
)

// Service registers users and checks their credentials.
type Service struct {
	repo   Repository
	hasher Hasher

	dummyOnce sync.Once
	dummy     string
}

// NewService returns a Service that stores users in repo.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Register creates a user with the default role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.create(ctx, in, model.RoleUser)
}

// CreateAdmin creates a user with the admin role.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.create(ctx, in, model.RoleAdmin)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role model.Role) (model.User, error) {
	valid, err := validateRegister(in)
	if err != nil {
		return model.User{}, err
	}

	digest, err := s.hasher.Hash(valid.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, model.User{
		Name:         valid.Name,
		Email:        valid.Email,
		PasswordHash: digest,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateIdentity) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// FindByCredentials returns ok=false for an unknown name and for a wrong
// password alike.
func (s *Service) FindByCredentials(ctx context.Context, name, password string) (model.User, bool, error) {
	u, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// keep the unknown-user path as slow as a real comparison
			s.hasher.Verify(password, s.dummyDigest())
			return model.User{}, false, nil
		}
		return model.User{}, false, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return model.User{}, false, nil
	}
	return u, true, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("taskr-dummy-password")
	})
	return s.dummy
}

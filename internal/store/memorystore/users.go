// Package memorystore keeps users and tasks in process memory. It is used
// by tests and by the "memory" database driver.
package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/riwart/taskr/internal/model"
)

type UserStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]model.User)}
}

func (s *UserStore) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Name == u.Name || existing.Email == u.Email {
			return model.User{}, model.ErrDuplicateIdentity
		}
	}

	s.nextID++
	u.ID = s.nextID
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *UserStore) GetByName(_ context.Context, name string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Name == name {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

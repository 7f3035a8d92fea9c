package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/riwart/taskr/internal/model"
	"github.com/riwart/taskr/internal/task"
)

type TaskStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]model.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[int64]model.Task)}
}

func (s *TaskStore) Create(_ context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t.ID = s.nextID
	s.tasks[t.ID] = t
	return t, nil
}

func (s *TaskStore) List(_ context.Context, filter task.ListFilter) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.OwnerID != 0 && t.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *TaskStore) Get(_ context.Context, id int64) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, model.ErrNotFound
	}
	return t, nil
}

// UpdateStatus holds the write lock across load, authorize and write.
func (s *TaskStore) UpdateStatus(_ context.Context, id int64, authorize task.AuthorizeFunc, status model.Status) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, model.ErrNotFound
	}
	if authorize != nil {
		if err := authorize(t); err != nil {
			return model.Task{}, err
		}
	}

	t.Status = status
	s.tasks[id] = t
	return t, nil
}

func (s *TaskStore) Delete(_ context.Context, id int64, authorize task.AuthorizeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.ErrNotFound
	}
	if authorize != nil {
		if err := authorize(t); err != nil {
			return err
		}
	}

	delete(s.tasks, id)
	return nil
}

package task

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riwart/taskr/internal/model"
	"github.com/riwart/taskr/internal/policy"
	"github.com/riwart/taskr/internal/session"
)

// Service runs the task workflow for a caller.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService returns a Service backed by repo. Posted dates use UTC.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for posted dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Add creates a task owned by caller with status incomplete.
func (s *Service) Add(ctx context.Context, caller model.Caller, in AddInput) (model.Task, error) {
	if err := session.RequireLogin(caller); err != nil {
		return model.Task{}, err
	}

	valid, err := validateAdd(in)
	if err != nil {
		return model.Task{}, err
	}

	created, err := s.repo.Create(ctx, model.Task{
		Name:       valid.name,
		DueDate:    valid.dueDate,
		Priority:   valid.priority,
		PostedDate: model.NewDate(s.now()),
		Status:     model.StatusIncomplete,
		OwnerID:    caller.UserID,
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

// List returns the caller's tasks, or every task for an admin.
func (s *Service) List(ctx context.Context, caller model.Caller) ([]model.Task, error) {
	if err := session.RequireLogin(caller); err != nil {
		return nil, err
	}

	var filter ListFilter
	if owner, all := policy.ListScope(caller); !all {
		filter.OwnerID = owner
	}

	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].DueDate.Equal(tasks[j].DueDate.Time) {
			return tasks[i].DueDate.Before(tasks[j].DueDate.Time)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// Split partitions tasks into open and closed ones, keeping order.
func Split(tasks []model.Task) (open, closed []model.Task) {
	open = make([]model.Task, 0, len(tasks))
	closed = make([]model.Task, 0)
	for _, t := range tasks {
		if t.IsComplete() {
			closed = append(closed, t)
			continue
		}
		open = append(open, t)
	}
	return open, closed
}

func (s *Service) Get(ctx context.Context, caller model.Caller, id int64) (model.Task, error) {
	if err := session.RequireLogin(caller); err != nil {
		return model.Task{}, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if err := policy.AuthorizeView(caller, t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// SetStatus moves a task to status. The ownership check and the write
// happen atomically inside the repository.
func (s *Service) SetStatus(ctx context.Context, caller model.Caller, id int64, status model.Status) (model.Task, error) {
	if err := session.RequireLogin(caller); err != nil {
		return model.Task{}, err
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.Task{}, err
	}

	return s.repo.UpdateStatus(ctx, id, s.authorizer(caller), status)
}

func (s *Service) Complete(ctx context.Context, caller model.Caller, id int64) (model.Task, error) {
	return s.SetStatus(ctx, caller, id, model.StatusComplete)
}

func (s *Service) Incomplete(ctx context.Context, caller model.Caller, id int64) (model.Task, error) {
	return s.SetStatus(ctx, caller, id, model.StatusIncomplete)
}

func (s *Service) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if err := session.RequireLogin(caller); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, s.authorizer(caller))
}

func (s *Service) authorizer(caller model.Caller) AuthorizeFunc {
	return func(t model.Task) error {
		return policy.AuthorizeMutation(caller, t)
	}
}

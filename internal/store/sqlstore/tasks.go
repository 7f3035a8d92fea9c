package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/riwart/taskr/internal/model"
	"github.com/riwart/taskr/internal/task"
)

type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, name, due_date, priority, posted_date, status, owner_id`

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	const q = `
INSERT INTO tasks (name, due_date, priority, posted_date, status, owner_id)
VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.insert(ctx, q,
		t.Name,
		t.DueDate.String(),
		t.Priority,
		t.PostedDate.String(),
		t.Status,
		t.OwnerID,
	)
	if err != nil {
		return model.Task{}, err
	}
	t.ID = id
	return t, nil
}

func (r *TaskRepo) List(ctx context.Context, filter task.ListFilter) ([]model.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if filter.OwnerID != 0 {
		q += ` WHERE owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	q += ` ORDER BY id`

	rows, err := r.db.conn.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(r.db.conn.QueryRowContext(ctx, r.db.rebind(q), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, model.ErrNotFound
		}
		return model.Task{}, err
	}
	return t, nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id int64, authorize task.AuthorizeFunc, status model.Status) (model.Task, error) {
	var updated model.Task
	err := r.withLockedTask(ctx, id, authorize, func(tx *sql.Tx, t model.Task) error {
		const q = `UPDATE tasks SET status = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, r.db.rebind(q), status, id); err != nil {
			return err
		}
		t.Status = status
		updated = t
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64, authorize task.AuthorizeFunc) error {
	return r.withLockedTask(ctx, id, authorize, func(tx *sql.Tx, _ model.Task) error {
		const q = `DELETE FROM tasks WHERE id = ?`
		_, err := tx.ExecContext(ctx, r.db.rebind(q), id)
		return err
	})
}

// withLockedTask loads the row inside a transaction, locking it where the
// dialect supports row locks, and commits only if authorize and write pass.
func (r *TaskRepo) withLockedTask(ctx context.Context, id int64, authorize task.AuthorizeFunc, write func(*sql.Tx, model.Task) error) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?` + r.db.d.lockClause
	t, err := scanTask(tx.QueryRowContext(ctx, r.db.rebind(q), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		return err
	}

	if authorize != nil {
		if err := authorize(t); err != nil {
			return err
		}
	}

	if err := write(tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanTask(s scanner) (model.Task, error) {
	var (
		t      model.Task
		due    time.Time
		posted time.Time
	)
	if err := s.Scan(&t.ID, &t.Name, &due, &t.Priority, &posted, &t.Status, &t.OwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, err
		}
		return model.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.DueDate = model.NewDate(due)
	t.PostedDate = model.NewDate(posted)
	return t, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/riwart/taskr/internal/model"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, role`

func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	const q = `INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`
	id, err := r.db.insert(ctx, q, u.Name, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, model.ErrDuplicateIdentity
		}
		return model.User{}, err
	}
	u.ID = id
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.getOne(ctx, q, id)
}

func (r *UserRepo) GetByName(ctx context.Context, name string) (model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE name = ?`
	return r.getOne(ctx, q, name)
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	u, err := scanUser(r.db.conn.QueryRowContext(ctx, r.db.rebind(q), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

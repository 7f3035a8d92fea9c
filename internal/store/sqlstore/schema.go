package sqlstore

import (
	"context"
	"fmt"
)

func (db *DB) schema() []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
	id %s,
	name VARCHAR(64) NOT NULL UNIQUE,
	email VARCHAR(64) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(16) NOT NULL DEFAULT 'user'
)`, db.d.autoID),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tasks (
	id %s,
	name VARCHAR(255) NOT NULL,
	due_date DATE NOT NULL,
	priority INTEGER NOT NULL,
	posted_date DATE NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'incomplete',
	owner_id BIGINT NOT NULL,
	FOREIGN KEY (owner_id) REFERENCES users(id)
)`, db.d.autoID),
	}
	// MySQL indexes foreign keys itself and has no CREATE INDEX IF NOT EXISTS
	if db.d.indexes {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)`)
	}
	return stmts
}

// Migrate creates the tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range db.schema() {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Package sqlstore implements the user and task repositories on top of
// database/sql for MySQL, PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type dialect struct {
	name       string
	driverName string
	autoID     string
	lockClause string
	returning  bool
	numbered   bool
	indexes    bool
}

var dialects = map[string]dialect{
	DriverMySQL: {
		name:       DriverMySQL,
		driverName: "mysql",
		autoID:     "BIGINT AUTO_INCREMENT PRIMARY KEY",
		lockClause: " FOR UPDATE",
	},
	DriverPostgres: {
		name:       DriverPostgres,
		driverName: "pgx",
		autoID:     "BIGSERIAL PRIMARY KEY",
		lockClause: " FOR UPDATE",
		returning:  true,
		numbered:   true,
		indexes:    true,
	},
	DriverSQLite: {
		name:       DriverSQLite,
		driverName: "sqlite3",
		autoID:     "INTEGER PRIMARY KEY AUTOINCREMENT",
		indexes:    true,
	},
}

// DB is a database handle bound to one SQL dialect.
type DB struct {
	conn *sql.DB
	d    dialect
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	dsn, err := normalizeDSN(d, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if d.name == DriverSQLite {
		// one connection serialises writers and keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &DB{conn: db, d: d}, nil
}

func normalizeDSN(d dialect, dsn string) (string, error) {
	switch d.name {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case DriverSQLite:
		for _, p := range []string{"_txlock=immediate", "_foreign_keys=on", "_busy_timeout=5000"} {
			key := p[:strings.IndexByte(p, '=')+1]
			if strings.Contains(dsn, key) {
				continue
			}
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + p
		}
		return dsn, nil
	default:
		return dsn, nil
	}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for dialects that number them.
func (db *DB) rebind(q string) string {
	if !db.d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// insert runs an INSERT and returns the generated id.
func (db *DB) insert(ctx context.Context, q string, args ...any) (int64, error) {
	if db.d.returning {
		var id int64
		if err := db.conn.QueryRowContext(ctx, db.rebind(q+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := db.conn.ExecContext(ctx, db.rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

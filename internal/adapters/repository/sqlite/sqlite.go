// Package sqlite stores questions, choices and admin sessions in SQLite
// through modernc.org/sqlite. Timestamps are kept as unix microseconds so
// ordering and range filters compare integers.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vncsmyrnk/polls/internal/adapters/repository/migrate"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

//go:embed migrations/*.sql
var migrationFiles embed.FS

var dialect = migrate.Dialect{
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`,
	Record: `INSERT INTO schema_migrations (name) VALUES (?)`,
	Forget: `DELETE FROM schema_migrations WHERE name = ?`,
}

// Open opens path with foreign keys enforced. A single connection is used:
// SQLite serializes writers anyway and an in-memory database only exists
// on the connection that created it.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path == Memory {
		dsn = "file::memory:"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	return migrate.Up(ctx, db, Migrations(), dialect)
}

// Rollback reverts the named migration.
func Rollback(ctx context.Context, db *sql.DB, name string) error {
	return migrate.Down(ctx, db, Migrations(), dialect, name)
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

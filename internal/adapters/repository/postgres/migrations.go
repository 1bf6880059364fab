package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/polls/internal/adapters/repository/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var dialect = migrate.Dialect{
	CreateTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`,
	Record: `INSERT INTO schema_migrations (name) VALUES ($1)`,
	Forget: `DELETE FROM schema_migrations WHERE name = $1`,
}

// Open connects to the database at url and checks that it answers.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
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

// Package migrate applies the embedded SQL migrations shipped by each
// repository adapter. Files are named NNN_name.up.sql / NNN_name.down.sql and
// applied in lexical order; applied names are recorded in schema_migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

// Dialect holds the statements that differ between drivers.
type Dialect struct {
	// CreateTable creates schema_migrations(name, applied_at) if missing.
	CreateTable string
	// Record inserts one applied migration name.
	Record string
	// Forget deletes one migration name.
	Forget string
}

// Up applies every pending up migration in fsys and returns the names applied.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS, d Dialect) ([]string, error) {
	if _, err := db.ExecContext(ctx, d.CreateTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := appliedNames(ctx, db)
	if err != nil {
		return nil, err
	}

	names, err := List(fsys, "up")
	if err != nil {
		return nil, err
	}

	var done []string
	for _, name := range names {
		if applied[name] {
			continue
		}

		content, err := fs.ReadFile(fsys, name+".up.sql")
		if err != nil {
			return done, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		if err := inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, d.Record, name)
			return err
		}); err != nil {
			return done, fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		done = append(done, name)
	}

	return done, nil
}

// Down reverts a single applied migration.
func Down(ctx context.Context, db *sql.DB, fsys fs.FS, d Dialect, name string) error {
	file, err := Find(fsys, name, "down")
	if err != nil {
		return err
	}

	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", file, err)
	}

	base := strings.TrimSuffix(file, ".down.sql")
	return inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
		_, err := tx.ExecContext(ctx, d.Forget, base)
		return err
	})
}

// List returns migration base names for the given direction, sorted.
func List(fsys fs.FS, direction string) ([]string, error) {
	suffix := "." + direction + ".sql"
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), suffix))
	}
	sort.Strings(names)
	return names, nil
}

// Find resolves a partial migration name such as "create_questions" to its
// file for the given direction.
func Find(fsys fs.FS, name, direction string) (string, error) {
	pattern, err := regexp.Compile(fmt.Sprintf(`^.*%s\.%s\.sql$`, regexp.QuoteMeta(name), direction))
	if err != nil {
		return "", fmt.Errorf("invalid migration name %q: %w", name, err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", fmt.Errorf("failed to read migrations directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && pattern.MatchString(entry.Name()) {
			return entry.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file not found: %s", name)
}

func appliedNames(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration name: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

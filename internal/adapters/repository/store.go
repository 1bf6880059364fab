package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/polls/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/polls/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Store bundles the repositories of one database.
type Store struct {
	DB        *sql.DB
	Questions ports.QuestionRepository
	Votes     ports.VoteRepository
	Users     ports.UserRepository
	Auth      ports.AuthRepository

	migrate  func(context.Context, *sql.DB) ([]string, error)
	rollback func(context.Context, *sql.DB, string) error
}

// Open connects to a database of the given type. For sqlite, url is a file
// path or sqlite.Memory.
func Open(ctx context.Context, dbType, url string) (*Store, error) {
	switch dbType {
	case TypePostgres:
		db, err := postgres.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		return &Store{
			DB:        db,
			Questions: postgres.NewQuestionRepository(db),
			Votes:     postgres.NewVoteRepository(db),
			Users:     postgres.NewUserRepository(db),
			Auth:      postgres.NewAuthRepository(db),
			migrate:   postgres.Migrate,
			rollback:  postgres.Rollback,
		}, nil
	case TypeSQLite:
		db, err := sqlite.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		return &Store{
			DB:        db,
			Questions: sqlite.NewQuestionRepository(db),
			Votes:     sqlite.NewVoteRepository(db),
			Users:     sqlite.NewUserRepository(db),
			Auth:      sqlite.NewAuthRepository(db),
			migrate:   sqlite.Migrate,
			rollback:  sqlite.Rollback,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

// Migrate applies pending migrations and returns the names it applied.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	return s.migrate(ctx, s.DB)
}

// Rollback reverts one migration by name.
func (s *Store) Rollback(ctx context.Context, name string) error {
	return s.rollback(ctx, s.DB, name)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.DB.Close()
}

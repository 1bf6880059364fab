package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, email, name, is_staff, created_at FROM users WHERE email = ?`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, email, name, is_staff, created_at FROM users WHERE id = ?`, id.String())
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	user.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, is_staff, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.Name, user.IsStaff, toMicros(user.CreatedAt),
	)
	return err
}

func (r *UserRepository) SetStaff(ctx context.Context, id uuid.UUID, isStaff bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_staff = ? WHERE id = ?`, isStaff, id.String())
	return err
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user    domain.User
		created int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.Name, &user.IsStaff, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = fromMicros(created)
	return &user, nil
}

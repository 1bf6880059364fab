package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetStaff fails with domain.ErrNotStaff when the user may not use
	// the admin site.
	GetStaff(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

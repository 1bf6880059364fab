package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) IncrementVotes(ctx context.Context, questionID, choiceID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE choices SET votes = votes + 1
		WHERE id = ? AND question_id = ?
	`, choiceID, questionID)
	if err != nil {
		return fmt.Errorf("failed to increment votes: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment votes: %w", err)
	}
	if n == 0 {
		return domain.ErrChoiceNotFound
	}
	return nil
}

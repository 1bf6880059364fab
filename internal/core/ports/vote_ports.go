package ports

import (
	"context"

	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type VoteRepository interface {
	// IncrementVotes adds one vote to the choice in a single statement.
	// It returns domain.ErrChoiceNotFound when the choice does not belong
	// to the question.
	IncrementVotes(ctx context.Context, questionID, choiceID int64) error
}

type VoteInput struct {
	QuestionID string
	ChoiceID   string
}

type VoteService interface {
	// Vote returns the question it voted on. On a missing or foreign
	// choice the question is still returned alongside the error so the
	// caller can redisplay the form.
	Vote(ctx context.Context, input VoteInput) (*domain.Question, error)
}

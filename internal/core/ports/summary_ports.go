package ports

import (
	"context"

	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type QuestionSummary struct {
	Question   *domain.Question
	TotalVotes int64
	Results    []domain.ChoiceResult
}

type SummaryService interface {
	// Summarize returns vote totals for every question, newest first.
	Summarize(ctx context.Context) ([]QuestionSummary, error)
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type summaryService struct {
	repo ports.QuestionRepository
}

func NewSummaryService(repo ports.QuestionRepository) ports.SummaryService {
	return &summaryService{
		repo: repo,
	}
}

func (s *summaryService) Summarize(ctx context.Context) ([]ports.QuestionSummary, error) {
	questions, err := s.repo.List(ctx, ports.QuestionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all questions: %w", err)
	}

	summaries := make([]ports.QuestionSummary, len(questions))

	var wg sync.WaitGroup
	errChan := make(chan error, len(questions))

	for i, question := range questions {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()

			full, err := s.repo.GetByID(ctx, id)
			if err != nil {
				errChan <- fmt.Errorf("failed to summarize question %d: %w", id, err)
				return
			}
			summaries[i] = ports.QuestionSummary{
				Question:   full,
				TotalVotes: full.TotalVotes(),
				Results:    full.Results(),
			}
		}(i, question.ID)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	return summaries, nil
}

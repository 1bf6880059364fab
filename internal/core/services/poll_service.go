package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

// IndexSize is the number of questions shown on the polls index.
const IndexSize = 5

type pollService struct {
	repo  ports.QuestionRepository
	clock Clock
}

func NewPollService(repo ports.QuestionRepository, clock Clock) ports.PollService {
	return &pollService{
		repo:  repo,
		clock: clock,
	}
}

func (s *pollService) Index(ctx context.Context) ([]*domain.Question, error) {
	questions, err := s.repo.ListPublished(ctx, s.clock.now(), IndexSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest questions: %w", err)
	}
	return questions, nil
}

func (s *pollService) Detail(ctx context.Context, id string) (*domain.Question, error) {
	return getPublished(ctx, s.repo, s.clock, id)
}

func (s *pollService) Results(ctx context.Context, id string) (*domain.Question, []domain.ChoiceResult, error) {
	question, err := getPublished(ctx, s.repo, s.clock, id)
	if err != nil {
		return nil, nil, err
	}
	return question, question.Results(), nil
}

// getPublished hides questions whose publish date is still in the future.
func getPublished(ctx context.Context, repo ports.QuestionRepository, clock Clock, rawID string) (*domain.Question, error) {
	id, ok := parseID(rawID)
	if !ok {
		return nil, domain.ErrInvalidQuestionID
	}

	question, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !question.IsPublished(clock.now()) {
		return nil, domain.ErrQuestionNotFound
	}
	return question, nil
}

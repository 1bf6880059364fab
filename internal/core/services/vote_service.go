package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type voteService struct {
	questionRepo ports.QuestionRepository
	voteRepo     ports.VoteRepository
	clock        Clock
}

func NewVoteService(questionRepo ports.QuestionRepository, voteRepo ports.VoteRepository, clock Clock) ports.VoteService {
	return &voteService{
		questionRepo: questionRepo,
		voteRepo:     voteRepo,
		clock:        clock,
	}
}

func (s *voteService) Vote(ctx context.Context, input ports.VoteInput) (*domain.Question, error) {
	question, err := getPublished(ctx, s.questionRepo, s.clock, input.QuestionID)
	if err != nil {
		return nil, err
	}

	rawChoice := strings.TrimSpace(input.ChoiceID)
	if rawChoice == "" {
		return question, domain.ErrNoChoiceSelected
	}

	choiceID, ok := parseID(rawChoice)
	if !ok {
		return question, domain.ErrChoiceNotFound
	}
	if _, ok := question.Choice(choiceID); !ok {
		return question, domain.ErrChoiceNotFound
	}

	if err := s.voteRepo.IncrementVotes(ctx, question.ID, choiceID); err != nil {
		// the choice may have been deleted since the question was loaded
		if errors.Is(err, domain.ErrChoiceNotFound) {
			return question, err
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	return question, nil
}

package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type adminService struct {
	repo      ports.QuestionRepository
	sanitizer *bluemonday.Policy
	clock     Clock
	location  *time.Location
}

// NewAdminService builds the service behind the admin site. Publish date
// filters such as "today" are evaluated in loc.
func NewAdminService(repo ports.QuestionRepository, clock Clock, loc *time.Location) ports.AdminService {
	if loc == nil {
		loc = time.UTC
	}
	return &adminService{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
		clock:     clock,
		location:  loc,
	}
}

func (s *adminService) ListQuestions(ctx context.Context, input ports.ListQuestionsInput) ([]*domain.Question, error) {
	since, until := publishedRange(input.Published, s.clock.now().In(s.location))

	questions, err := s.repo.List(ctx, ports.QuestionFilter{
		Search: strings.TrimSpace(input.Search),
		Since:  since,
		Until:  until,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *adminService) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	questionID, ok := parseID(id)
	if !ok {
		return nil, domain.ErrInvalidQuestionID
	}
	return s.repo.GetByID(ctx, questionID)
}

func (s *adminService) CreateQuestion(ctx context.Context, input ports.QuestionInput) (*domain.Question, error) {
	question, _, err := s.clean(input, nil)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return question, nil
}

func (s *adminService) UpdateQuestion(ctx context.Context, id string, input ports.QuestionInput) (*domain.Question, error) {
	existing, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	question, removed, err := s.clean(input, existing)
	if err != nil {
		return nil, err
	}
	question.ID = existing.ID

	if err := s.repo.Update(ctx, question, removed); err != nil {
		return nil, fmt.Errorf("failed to update question %d: %w", existing.ID, err)
	}
	return s.repo.GetByID(ctx, existing.ID)
}

func (s *adminService) DeleteQuestion(ctx context.Context, id string) error {
	questionID, ok := parseID(id)
	if !ok {
		return domain.ErrInvalidQuestionID
	}
	return s.repo.Delete(ctx, questionID)
}

// clean validates the submitted form. Rows without an id and without text
// are unused extra rows and are dropped. existing is nil on create.
func (s *adminService) clean(input ports.QuestionInput, existing *domain.Question) (*domain.Question, []int64, error) {
	verr := &domain.ValidationError{}

	text := s.cleanText(input.Text)
	switch {
	case text == "":
		verr.Add("question_text", "This field is required.")
	case utf8.RuneCountInString(text) > domain.MaxQuestionTextLength:
		verr.Add("question_text", tooLong(domain.MaxQuestionTextLength, text))
	}

	if input.PublishDate.IsZero() {
		verr.Add("publish_date", "This field is required.")
	}

	question := &domain.Question{
		Text:        text,
		PublishDate: input.PublishDate.UTC(),
	}
	var removed []int64

	for i, c := range input.Choices {
		field := fmt.Sprintf("choices-%d", i)

		if c.ID != 0 {
			if existing == nil {
				verr.Add(field+"-id", "Select a valid choice.")
				continue
			}
			if _, ok := existing.Choice(c.ID); !ok {
				verr.Add(field+"-id", "Select a valid choice.")
				continue
			}
		}

		if c.Delete {
			if c.ID != 0 {
				removed = append(removed, c.ID)
			}
			continue
		}

		choiceText := s.cleanText(c.Text)
		if choiceText == "" {
			if c.ID != 0 {
				verr.Add(field+"-choice_text", "This field is required.")
			}
			continue
		}
		if utf8.RuneCountInString(choiceText) > domain.MaxChoiceTextLength {
			verr.Add(field+"-choice_text", tooLong(domain.MaxChoiceTextLength, choiceText))
			continue
		}
		if c.Votes < 0 {
			verr.Add(field+"-votes", "Ensure this value is greater than or equal to 0.")
			continue
		}

		question.Choices = append(question.Choices, domain.Choice{
			ID:         c.ID,
			QuestionID: question.ID,
			Text:       choiceText,
			Votes:      c.Votes,
		})
	}

	if !verr.Empty() {
		return nil, nil, verr
	}
	return question, removed, nil
}

// cleanText strips markup. Entities are unescaped again because templates
// escape on output.
func (s *adminService) cleanText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(strings.TrimSpace(raw))))
}

func tooLong(limit int, value string) string {
	return fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", limit, utf8.RuneCountInString(value))
}

// publishedRange turns a changelist filter into a half-open [since, until)
// window on the publish date. Unknown filters match everything.
func publishedRange(filter string, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	switch filter {
	case ports.PublishedToday:
		return today, tomorrow
	case ports.PublishedPast7:
		return today.AddDate(0, 0, -7), tomorrow
	case ports.PublishedMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0)
	case ports.PublishedYear:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

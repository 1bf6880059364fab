package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/polls/internal/core/domain"
)

// QuestionFilter narrows an admin listing. Zero values disable a condition.
type QuestionFilter struct {
	Search string
	Since  time.Time
	Until  time.Time
}

type QuestionRepository interface {
	Create(ctx context.Context, question *domain.Question) error
	Update(ctx context.Context, question *domain.Question, removedChoiceIDs []int64) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Question, error)
	ListPublished(ctx context.Context, now time.Time, limit int) ([]*domain.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]*domain.Question, error)
}

type PollService interface {
	Index(ctx context.Context) ([]*domain.Question, error)
	Detail(ctx context.Context, id string) (*domain.Question, error)
	Results(ctx context.Context, id string) (*domain.Question, []domain.ChoiceResult, error)
}

// Publish date ranges understood by the admin changelist filter.
const (
	PublishedAny   = ""
	PublishedToday = "today"
	PublishedPast7 = "past7"
	PublishedMonth = "month"
	PublishedYear  = "year"
)

type ListQuestionsInput struct {
	Search    string
	Published string
}

type ChoiceInput struct {
	ID     int64
	Text   string
	Votes  int64
	Delete bool
}

type QuestionInput struct {
	Text        string
	PublishDate time.Time
	Choices     []ChoiceInput
}

type AdminService interface {
	ListQuestions(ctx context.Context, input ListQuestionsInput) ([]*domain.Question, error)
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)
	CreateQuestion(ctx context.Context, input QuestionInput) (*domain.Question, error)
	UpdateQuestion(ctx context.Context, id string, input QuestionInput) (*domain.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

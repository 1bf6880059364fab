package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

// fakeStore is an in-memory stand-in for the SQL repositories.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	questions map[int64]*domain.Question
	users     map[uuid.UUID]*domain.User
	tokens    map[string]*domain.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions: make(map[int64]*domain.Question),
		users:     make(map[uuid.UUID]*domain.User),
		tokens:    make(map[string]*domain.RefreshToken),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Create(ctx context.Context, q *domain.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	q.ID = f.id()
	for i := range q.Choices {
		q.Choices[i].ID = f.id()
		q.Choices[i].QuestionID = q.ID
	}
	f.questions[q.ID] = clone(q)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, q *domain.Question, removed []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.questions[q.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	stored.Text = q.Text
	stored.PublishDate = q.PublishDate

	kept := stored.Choices[:0]
	for _, c := range stored.Choices {
		drop := false
		for _, id := range removed {
			drop = drop || id == c.ID
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	stored.Choices = kept

	for _, c := range q.Choices {
		if c.ID == 0 {
			c.ID = f.id()
			c.QuestionID = q.ID
			stored.Choices = append(stored.Choices, c)
			continue
		}
		for i := range stored.Choices {
			if stored.Choices[i].ID == c.ID {
				stored.Choices[i].Text = c.Text
				stored.Choices[i].Votes = c.Votes
			}
		}
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	return clone(q), nil
}

func (f *fakeStore) ListPublished(ctx context.Context, now time.Time, limit int) ([]*domain.Question, error) {
	all, _ := f.List(ctx, ports.QuestionFilter{})
	var out []*domain.Question
	for _, q := range all {
		if !q.PublishDate.After(now) && len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) List(ctx context.Context, filter ports.QuestionFilter) ([]*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.Question
	for _, q := range f.questions {
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.Text), strings.ToLower(filter.Search)) {
			continue
		}
		if !filter.Since.IsZero() && q.PublishDate.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !q.PublishDate.Before(filter.Until) {
			continue
		}
		out = append(out, clone(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishDate.After(out[j].PublishDate) })
	return out, nil
}

func (f *fakeStore) IncrementVotes(ctx context.Context, questionID, choiceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.questions[questionID]
	if !ok {
		return domain.ErrChoiceNotFound
	}
	for i := range q.Choices {
		if q.Choices[i].ID == choiceID {
			q.Choices[i].Votes++
			return nil
		}
	}
	return domain.ErrChoiceNotFound
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) getUser(id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) SetStaff(ctx context.Context, id uuid.UUID, isStaff bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[id]; ok {
		u.IsStaff = isStaff
	}
	return nil
}

func (f *fakeStore) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *token
	f.tokens[token.TokenHash] = &copied
	return nil
}

func (f *fakeStore) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tokens[hash]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

// fakeUsers adapts fakeStore to ports.UserRepository; GetByID and Create
// collide with the question repository methods.
type fakeUsers struct{ *fakeStore }

func (u fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return u.getUser(id)
}

func (u fakeUsers) Create(ctx context.Context, user *domain.User) error {
	return u.CreateUser(ctx, user)
}

func clone(q *domain.Question) *domain.Question {
	copied := *q
	copied.Choices = append([]domain.Choice(nil), q.Choices...)
	return &copied
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func seedQuestion(store *fakeStore, text string, publishDate time.Time, choices ...string) *domain.Question {
	q := &domain.Question{Text: text, PublishDate: publishDate}
	for _, c := range choices {
		q.Choices = append(q.Choices, domain.Choice{Text: c})
	}
	_ = store.Create(context.Background(), q)
	return q
}

var (
	_ ports.QuestionRepository = (*fakeStore)(nil)
	_ ports.VoteRepository     = (*fakeStore)(nil)
	_ ports.AuthRepository     = (*fakeStore)(nil)
	_ ports.UserRepository     = fakeUsers{}
)

package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/polls/internal/adapters/repository"
	"github.com/vncsmyrnk/polls/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
	"github.com/vncsmyrnk/polls/internal/core/services"
)

var now = time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

type MockVerifier struct{}

func (m *MockVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	switch token {
	case "valid_token":
		return &ports.TokenPayload{Email: "admin@example.com", Name: "Admin"}, nil
	case "visitor_token":
		return &ports.TokenPayload{Email: "visitor@example.com", Name: "Visitor"}, nil
	}
	return nil, errors.New("invalid token")
}

type TestApp struct {
	Handler http.Handler
	Store   *repository.Store
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	ctx := context.Background()
	store, err := repository.Open(ctx, repository.TypeSQLite, sqlite.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Migrate(ctx)
	require.NoError(t, err)

	clock := func() time.Time { return now }
	renderer, err := NewRenderer(time.UTC, clock)
	require.NoError(t, err)

	authService := services.NewAuthService(store.Users, store.Auth, &MockVerifier{}, services.AuthConfig{
		JWTSecret:      "test-secret",
		GoogleClientID: "test-client",
		StaffEmails:    []string{"admin@example.com"},
	})

	handler := NewHandler(Handlers{
		Renderer: renderer,
		Polls:    NewPollHandler(services.NewPollService(store.Questions, clock), renderer),
		Votes:    NewVoteHandler(services.NewVoteService(store.Questions, store.Votes, clock), renderer),
		Admin:    NewAdminHandler(services.NewAdminService(store.Questions, clock, time.UTC), renderer, time.UTC),
		Auth:     NewAuthHandler(authService, services.NewUserService(store.Users), renderer, "test-client", false),
		Store:    store,
	})

	return &TestApp{Handler: handler, Store: store}
}

func (a *TestApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	return rec
}

func (a *TestApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (a *TestApp) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptestPost(path, form), cookies...)
}

func httptestPost(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// login signs in through the Google callback and returns the session cookies.
func (a *TestApp) login(t *testing.T, credential string) []*http.Cookie {
	t.Helper()

	rec := a.post(callbackPath, url.Values{
		"credential":    {credential},
		googleCSRFField: {"csrf"},
	}, &http.Cookie{Name: googleCSRFField, Value: "csrf"})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	return rec.Result().Cookies()
}

func (a *TestApp) seed(t *testing.T, text string, age time.Duration, choices ...string) *domain.Question {
	t.Helper()

	q := &domain.Question{Text: text, PublishDate: now.Add(-age)}
	for _, c := range choices {
		q.Choices = append(q.Choices, domain.Choice{Text: c})
	}
	require.NoError(t, a.Store.Questions.Create(context.Background(), q))
	return q
}

func (a *TestApp) reload(t *testing.T, id int64) *domain.Question {
	t.Helper()

	q, err := a.Store.Questions.GetByID(context.Background(), id)
	require.NoError(t, err)
	return q
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

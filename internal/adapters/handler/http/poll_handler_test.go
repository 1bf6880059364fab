package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	app := setupTestApp(t)

	t.Run("no questions", func(t *testing.T) {
		rec := app.get("/polls/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "No polls are available.")
	})

	t.Run("five latest published questions", func(t *testing.T) {
		for i := 1; i <= 6; i++ {
			app.seed(t, fmt.Sprintf("Past question %d", i), time.Duration(i)*time.Hour)
		}
		app.seed(t, "Future question", -time.Hour)

		rec := app.get("/polls/")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()

		assert.NotContains(t, body, "No polls are available.")
		assert.NotContains(t, body, "Future question")
		assert.NotContains(t, body, "Past question 6")
		assert.Equal(t, 5, strings.Count(body, "<li>"))

		last := -1
		for i := 1; i <= 5; i++ {
			idx := strings.Index(body, fmt.Sprintf("Past question %d", i))
			require.NotEqual(t, -1, idx)
			assert.Greater(t, idx, last, "questions should be newest first")
			last = idx
		}
	})
}

func TestDetail(t *testing.T) {
	app := setupTestApp(t)
	q := app.seed(t, "Past question", 24*time.Hour, "Not much", "The sky")
	future := app.seed(t, "Future question", -30*24*time.Hour, "Soon")

	t.Run("published question", func(t *testing.T) {
		rec := app.get(fmt.Sprintf("/polls/%d/", q.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()

		assert.Contains(t, body, "Past question")
		assert.Contains(t, body, fmt.Sprintf(`action="/polls/%d/vote/"`, q.ID))
		assert.Contains(t, body, fmt.Sprintf(`<label for="choice%d">Not much</label>`, q.Choices[0].ID))
		assert.Contains(t, body, fmt.Sprintf(`<label for="choice%d">The sky</label>`, q.Choices[1].ID))
		assert.NotContains(t, body, "You didn't select a choice.")
	})

	for name, path := range map[string]string{
		"future question": fmt.Sprintf("/polls/%d/", future.ID),
		"missing":         "/polls/9999/",
		"malformed id":    "/polls/abc/",
		"missing results": "/polls/9999/results/",
		"future results":  fmt.Sprintf("/polls/%d/results/", future.ID),
	} {
		t.Run(name, func(t *testing.T) {
			rec := app.get(path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "Not Found")
		})
	}
}

func TestResults(t *testing.T) {
	app := setupTestApp(t)
	q := app.seed(t, "Best color", time.Hour, "Red", "Green", "Blue")
	for _, idx := range []int{0, 1, 1} {
		require.NoError(t, app.Store.Votes.IncrementVotes(t.Context(), q.ID, q.Choices[idx].ID))
	}

	rec := app.get(fmt.Sprintf("/polls/%d/results/", q.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "<h1>Best color</h1>")
	assert.Contains(t, body, "Red -- 1 vote (33.3%)")
	assert.Contains(t, body, "Green -- 2 votes (66.7%)")
	assert.Contains(t, body, "Blue -- 0 votes (0.0%)")
	assert.Contains(t, body, fmt.Sprintf(`<a href="/polls/%d/">Vote again?</a>`, q.ID))
}

func TestVote(t *testing.T) {
	app := setupTestApp(t)
	q := app.seed(t, "Vote here", time.Hour, "A", "B")
	other := app.seed(t, "Elsewhere", time.Hour, "X")
	future := app.seed(t, "Not yet", -time.Hour, "Later")

	votePath := fmt.Sprintf("/polls/%d/vote/", q.ID)

	t.Run("valid choice redirects to results", func(t *testing.T) {
		rec := app.post(votePath, url.Values{"choice": {fmt.Sprint(q.Choices[1].ID)}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, fmt.Sprintf("/polls/%d/results/", q.ID), rec.Header().Get("Location"))

		got := app.reload(t, q.ID)
		assert.Equal(t, int64(0), got.Choices[0].Votes)
		assert.Equal(t, int64(1), got.Choices[1].Votes)
	})

	for name, form := range map[string]url.Values{
		"no choice":      {},
		"empty choice":   {"choice": {""}},
		"garbage choice": {"choice": {"abc"}},
		"unknown choice": {"choice": {"99999"}},
		"foreign choice": {"choice": {fmt.Sprint(other.Choices[0].ID)}},
	} {
		t.Run(name, func(t *testing.T) {
			rec := app.post(votePath, form)
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "You didn't select a choice.")
			assert.Contains(t, body, fmt.Sprintf(`<label for="choice%d">A</label>`, q.Choices[0].ID))

			got := app.reload(t, q.ID)
			assert.Equal(t, int64(0), got.Choices[0].Votes)
			assert.Equal(t, int64(1), got.Choices[1].Votes)
			assert.Equal(t, int64(0), app.reload(t, other.ID).Choices[0].Votes)
		})
	}

	t.Run("missing question", func(t *testing.T) {
		rec := app.post("/polls/9999/vote/", url.Values{"choice": {"1"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("future question", func(t *testing.T) {
		rec := app.post(fmt.Sprintf("/polls/%d/vote/", future.ID), url.Values{"choice": {fmt.Sprint(future.Choices[0].ID)}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, int64(0), app.reload(t, future.ID).Choices[0].Votes)
	})

	t.Run("get is not allowed", func(t *testing.T) {
		rec := app.get(votePath)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestVote_Concurrent(t *testing.T) {
	app := setupTestApp(t)
	q := app.seed(t, "Race", time.Hour, "Only")

	const voters = 20
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := app.post(fmt.Sprintf("/polls/%d/vote/", q.ID), url.Values{"choice": {fmt.Sprint(q.Choices[0].ID)}})
			assert.Equal(t, http.StatusSeeOther, rec.Code)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(voters), app.reload(t, q.ID).Choices[0].Votes)
}

func TestRouting(t *testing.T) {
	app := setupTestApp(t)
	q := app.seed(t, "Slash", time.Hour, "A")

	t.Run("root redirects to polls", func(t *testing.T) {
		rec := app.get("/")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/polls/", rec.Header().Get("Location"))
	})

	t.Run("missing trailing slash", func(t *testing.T) {
		rec := app.get(fmt.Sprintf("/polls/%d/results", q.ID))
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, fmt.Sprintf("/polls/%d/results/", q.ID), rec.Header().Get("Location"))
	})

	t.Run("unknown page", func(t *testing.T) {
		rec := app.get("/nowhere/")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Not Found")
	})

	t.Run("health check", func(t *testing.T) {
		rec := app.get("/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("cross origin post is rejected", func(t *testing.T) {
		req := httptestPost(fmt.Sprintf("/polls/%d/vote/", q.ID), url.Values{"choice": {fmt.Sprint(q.Choices[0].ID)}})
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rec := app.do(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, int64(0), app.reload(t, q.ID).Choices[0].Votes)
	})
}

func TestRendererHelpers(t *testing.T) {
	assert.Equal(t, "", pluralize(int64(1)))
	assert.Equal(t, "s", pluralize(int64(0)))
	assert.Equal(t, "s", pluralize(2))
	assert.Equal(t, "66.7%", formatPercent(200.0/3))
}

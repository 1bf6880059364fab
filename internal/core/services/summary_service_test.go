package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

func TestSummaryService_Summarize(t *testing.T) {
	store := newFakeStore()
	older := seedQuestion(store, "Older", now.Add(-48*time.Hour), "A", "B")
	newer := seedQuestion(store, "Newer", now.Add(-time.Hour), "X")

	ctx := context.Background()
	require.NoError(t, store.IncrementVotes(ctx, older.ID, older.Choices[0].ID))
	require.NoError(t, store.IncrementVotes(ctx, older.ID, older.Choices[1].ID))
	require.NoError(t, store.IncrementVotes(ctx, older.ID, older.Choices[1].ID))

	summaries, err := NewSummaryService(store).Summarize(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, newer.ID, summaries[0].Question.ID)
	assert.Equal(t, int64(0), summaries[0].TotalVotes)

	assert.Equal(t, older.ID, summaries[1].Question.ID)
	assert.Equal(t, int64(3), summaries[1].TotalVotes)
	require.Len(t, summaries[1].Results, 2)
	assert.InDelta(t, 66.67, summaries[1].Results[1].Percentage, 0.01)
}

func TestSummaryService_Empty(t *testing.T) {
	summaries, err := NewSummaryService(newFakeStore()).Summarize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

// failingRepo lists a question it then cannot load.
type failingRepo struct {
	*fakeStore
}

func (r failingRepo) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	return nil, errors.New("connection reset")
}

func TestSummaryService_LoadError(t *testing.T) {
	store := newFakeStore()
	seedQuestion(store, "Broken", now, "A")

	var repo ports.QuestionRepository = failingRepo{store}
	_, err := NewSummaryService(repo).Summarize(context.Background())
	assert.ErrorContains(t, err, "failed to summarize question")
}

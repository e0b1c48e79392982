package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertRunStartKeepsEarliest(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRunRepository()
	ctx := context.Background()
	runID := uuid.New()
	early := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	require.NoError(t, repo.UpsertRunStart(ctx, runID, late))
	require.NoError(t, repo.UpsertRunStart(ctx, runID, early))

	state, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, early, state.StartedAt)
	assert.Equal(t, OutcomeRunning, state.Outcome)
	assert.Nil(t, state.FinishedAt)
}

func TestApplyDeltasAccumulates(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRunRepository()
	ctx := context.Background()
	runID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertRunStart(ctx, runID, now))
	require.NoError(t, repo.ApplyDeltas(ctx, runID, RunDeltas{
		Pages: 2, Links: 5, HTMLBytes: 100, LastURL: "https://app.example.com/a", At: now,
	}))
	require.NoError(t, repo.ApplyDeltas(ctx, runID, RunDeltas{
		Pages: 1, Failures: 1, ScreenshotBytes: 200,
		LastURL: "https://app.example.com/b", LastError: "timeout", At: now,
	}))

	state, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Pages)
	assert.Equal(t, int64(5), state.Links)
	assert.Equal(t, int64(1), state.Failures)
	assert.Equal(t, int64(100), state.HTMLBytes)
	assert.Equal(t, int64(200), state.ScreenshotBytes)
	assert.Equal(t, "https://app.example.com/b", state.LastURL)
	assert.Equal(t, "timeout", state.LastError)
}

func TestApplyDeltasCreatesRunOutOfOrder(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRunRepository()
	ctx := context.Background()
	runID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.ApplyDeltas(ctx, runID, RunDeltas{Pages: 1, At: now}))

	state, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Pages)
	assert.Equal(t, now, state.StartedAt)
}

func TestCompleteRun(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRunRepository()
	ctx := context.Background()
	runID := uuid.New()
	start := time.Now().UTC()
	finish := start.Add(30 * time.Second)

	require.NoError(t, repo.UpsertRunStart(ctx, runID, start))
	require.NoError(t, repo.CompleteRun(ctx, runID, finish, OutcomeAborted))

	state, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAborted, state.Outcome)
	require.NotNil(t, state.FinishedAt)
	assert.Equal(t, finish, *state.FinishedAt)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRunRepository()
	_, err := repo.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsOrderingAndPaging(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRunRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, repo.UpsertRunStart(ctx, ids[i], base.Add(time.Duration(i)*time.Minute)))
	}

	runs, err := repo.ListRuns(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)

	page, err := repo.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].RunID)

	empty, err := repo.ListRuns(ctx, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

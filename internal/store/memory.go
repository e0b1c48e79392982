package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRunRepository keeps run aggregates in memory. It backs the API in
// single-process deployments and every repository-facing test.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*RunState
}

// NewMemoryRunRepository creates an empty repository.
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[uuid.UUID]*RunState)}
}

// UpsertRunStart records the run as running; repeated calls keep the
// earliest start time.
func (r *MemoryRunRepository) UpsertRunStart(_ context.Context, runID uuid.UUID, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.runs[runID]; ok {
		if startedAt.Before(existing.StartedAt) {
			existing.StartedAt = startedAt
		}
		return nil
	}
	r.runs[runID] = &RunState{
		RunID:     runID,
		StartedAt: startedAt,
		Outcome:   OutcomeRunning,
	}
	return nil
}

// ApplyDeltas adds counters to the run, creating it if events arrive out of
// order.
func (r *MemoryRunRepository) ApplyDeltas(_ context.Context, runID uuid.UUID, deltas RunDeltas) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.runs[runID]
	if !ok {
		state = &RunState{RunID: runID, StartedAt: deltas.At, Outcome: OutcomeRunning}
		r.runs[runID] = state
	}
	state.Pages += deltas.Pages
	state.Links += deltas.Links
	state.Failures += deltas.Failures
	state.HTMLBytes += deltas.HTMLBytes
	state.ScreenshotBytes += deltas.ScreenshotBytes
	if deltas.LastURL != "" {
		state.LastURL = deltas.LastURL
	}
	if deltas.LastError != "" {
		state.LastError = deltas.LastError
	}
	return nil
}

// CompleteRun marks the run terminal.
func (r *MemoryRunRepository) CompleteRun(_ context.Context, runID uuid.UUID, finishedAt time.Time, outcome RunOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.runs[runID]
	if !ok {
		state = &RunState{RunID: runID, StartedAt: finishedAt}
		r.runs[runID] = state
	}
	ts := finishedAt
	state.FinishedAt = &ts
	state.Outcome = outcome
	return nil
}

// GetRun returns a copy of the run aggregate.
func (r *MemoryRunRepository) GetRun(_ context.Context, runID uuid.UUID) (RunState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.runs[runID]
	if !ok {
		return RunState{}, ErrNotFound
	}
	return *state, nil
}

// ListRuns returns runs ordered by start time descending.
func (r *MemoryRunRepository) ListRuns(_ context.Context, limit, offset int) ([]RunState, error) {
	r.mu.RLock()
	out := make([]RunState, 0, len(r.runs))
	for _, state := range r.runs {
		out = append(out, *state)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID.String() > out[j].RunID.String()
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})

	if offset >= len(out) {
		return []RunState{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Package store declares interfaces for persisting run progress.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested run does not exist.
var ErrNotFound = errors.New("run record not found")

// RunOutcome mirrors the terminal state recorded for a run.
type RunOutcome string

// Run outcomes persisted per run.
const (
	OutcomeRunning   RunOutcome = "running"
	OutcomeCompleted RunOutcome = "completed"
	OutcomeAborted   RunOutcome = "aborted"
)

// RunState is the queryable aggregate for one crawl run.
type RunState struct {
	// RunID is the run's identifier shared with progress events.
	RunID uuid.UUID
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// FinishedAt is nil until the run reaches a terminal state.
	FinishedAt *time.Time
	// Outcome is running/completed/aborted.
	Outcome RunOutcome
	// Pages counts persisted page records.
	Pages int64
	// Links counts admitted frontier entries.
	Links int64
	// Failures counts pages that errored without aborting the run.
	Failures int64
	// HTMLBytes and ScreenshotBytes accumulate artifact sizes.
	HTMLBytes       int64
	ScreenshotBytes int64
	// LastURL is the most recently visited page.
	LastURL string
	// LastError holds the most recent error note, if any.
	LastError string
}

// RunDeltas carries collapsed counter increments for one run.
type RunDeltas struct {
	Pages           int64
	Links           int64
	Failures        int64
	HTMLBytes       int64
	ScreenshotBytes int64
	LastURL         string
	LastError       string
	At              time.Time
}

// RunRepository persists incremental run progress.
type RunRepository interface {
	// UpsertRunStart inserts (or idempotently updates) the started_at timestamp.
	UpsertRunStart(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	// ApplyDeltas adds collapsed counters to the run aggregate.
	ApplyDeltas(ctx context.Context, runID uuid.UUID, deltas RunDeltas) error
	// CompleteRun marks the run finished with the provided outcome.
	CompleteRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, outcome RunOutcome) error

	// GetRun loads a single run or returns ErrNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (RunState, error)
	// ListRuns returns runs ordered by start time descending.
	ListRuns(ctx context.Context, limit, offset int) ([]RunState, error)
}

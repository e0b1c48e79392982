// Package queue defines the run queue abstraction. Runs are executed one at
// a time because each run owns an exclusive browser; the queue decouples
// request intake from that serial execution.
package queue

import (
	"context"
	"time"
)

// RunRequest describes one queued crawl run.
type RunRequest struct {
	// RunID is the UUID assigned at enqueue time.
	RunID string
	// SeedURL is where the traversal starts.
	SeedURL string
	// MaxDepth overrides the configured depth limit when positive.
	MaxDepth int
	// EnqueuedAt records intake time for queue latency observability.
	EnqueuedAt time.Time
}

// Queue is the transport between the API and the worker loop.
type Queue interface {
	// Enqueue pushes a run request or returns when the context ends.
	Enqueue(ctx context.Context, req RunRequest) error
	// Dequeue pops the next request, respecting context cancellation.
	Dequeue(ctx context.Context) (RunRequest, error)
	// Close releases queue resources.
	Close()
}

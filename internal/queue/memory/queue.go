// Package memory provides the in-process run queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/siteatlas/siteatlas/internal/queue"
)

// ErrClosed signals an operation against a closed queue.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch     chan queue.RunRequest
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan queue.RunRequest, capacity)}
}

// Enqueue pushes a run request or returns if the context ends. The read lock
// is held across the send so Close cannot close the channel mid-send.
func (q *Queue) Enqueue(ctx context.Context, req queue.RunRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- req:
		return nil
	}
}

// Dequeue pops the next request, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (queue.RunRequest, error) {
	select {
	case <-ctx.Done():
		return queue.RunRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case req, ok := <-q.ch:
		if !ok {
			return queue.RunRequest{}, ErrClosed
		}
		return req, nil
	}
}

// Close closes the underlying channel for shutdown. It waits for in-flight
// Enqueue calls to finish before closing.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}

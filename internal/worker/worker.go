// Package worker executes queued crawl runs one at a time. Serial execution
// is deliberate: every run owns the machine's single browser session.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siteatlas/siteatlas/internal/crawl"
	"github.com/siteatlas/siteatlas/internal/publisher"
	"github.com/siteatlas/siteatlas/internal/queue"
	"github.com/siteatlas/siteatlas/internal/store"
)

// Runner executes one crawl run end to end. The app layer supplies an
// implementation that launches a browser, wires an orchestrator, and tears
// everything down afterwards.
type Runner interface {
	Execute(ctx context.Context, req queue.RunRequest) (crawl.Summary, error)
}

// Config controls Worker behavior.
type Config struct {
	// Topic names the completion topic; empty disables publishing.
	Topic string
}

// Worker consumes run requests and drives them through the Runner.
type Worker struct {
	queue  queue.Queue
	runner Runner
	repo   store.RunRepository
	pub    publisher.Publisher
	clock  crawl.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker. repo and pub may be nil.
func New(
	q queue.Queue,
	runner Runner,
	repo store.RunRepository,
	pub publisher.Publisher,
	clock crawl.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:  q,
		runner: runner,
		repo:   repo,
		pub:    pub,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Run blocks, consuming run requests until the context finishes or the
// queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			return
		}
		w.logger.Info("dequeued run",
			zap.String("run_id", req.RunID),
			zap.String("seed_url", req.SeedURL),
			zap.Duration("queue_latency", w.clock.Now().Sub(req.EnqueuedAt)),
		)
		w.processRun(ctx, req)
	}
}

func (w *Worker) processRun(ctx context.Context, req queue.RunRequest) {
	summary, err := w.runner.Execute(ctx, req)
	if err != nil {
		w.logger.Error("run failed", zap.String("run_id", req.RunID), zap.Error(err))
	}

	w.recordOutcome(ctx, req, summary)
	w.publishCompletion(ctx, req, summary)
}

func (w *Worker) recordOutcome(ctx context.Context, req queue.RunRequest, summary crawl.Summary) {
	if w.repo == nil {
		return
	}
	runID, err := uuid.Parse(req.RunID)
	if err != nil {
		w.logger.Warn("unparseable run id", zap.String("run_id", req.RunID), zap.Error(err))
		return
	}
	outcome := store.OutcomeCompleted
	if summary.Status != crawl.RunStatusCompleted {
		outcome = store.OutcomeAborted
	}
	// Outcome recording must survive shutdown-triggered aborts.
	if err := w.repo.CompleteRun(context.WithoutCancel(ctx), runID, w.clock.Now(), outcome); err != nil {
		w.logger.Error("record run outcome failed", zap.String("run_id", req.RunID), zap.Error(err))
	}
}

func (w *Worker) publishCompletion(ctx context.Context, req queue.RunRequest, summary crawl.Summary) {
	if w.cfg.Topic == "" || w.pub == nil {
		return
	}
	payload := map[string]any{
		"run_id":     req.RunID,
		"seed_url":   req.SeedURL,
		"status":     string(summary.Status),
		"pages":      summary.Pages,
		"failures":   summary.Failures,
		"duplicates": summary.Duplicates,
		"index_uri":  summary.IndexURI,
		"elapsed_ms": summary.Elapsed.Milliseconds(),
		"timestamp":  w.clock.Now().Format(time.RFC3339),
	}
	if _, err := w.pub.Publish(context.WithoutCancel(ctx), w.cfg.Topic, payload); err != nil {
		w.logger.Error("publish completion failed", zap.String("run_id", req.RunID), zap.Error(err))
		return
	}
	w.logger.Info("run completion published",
		zap.String("run_id", req.RunID),
		zap.String("topic", w.cfg.Topic),
		zap.Int("pages", summary.Pages),
	)
}

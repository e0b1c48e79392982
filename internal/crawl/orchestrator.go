package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/siteatlas/siteatlas/internal/progress"
)

// Orchestrator drives one crawl run: it seeds the frontier, drains it against
// the single exclusive browser, and coordinates the ledger, policy, capturer,
// and persister. State moves Idle -> Seeding -> Draining -> Completed, with
// Aborted as the alternate terminal on cancellation or loss of the browser.
type Orchestrator struct {
	runID     [16]byte
	fetcher   Fetcher
	capturer  Capturer
	persister Persister
	policy    *Policy
	ledger    *Ledger
	emitter   progress.Emitter
	clock     Clock
	logger    *zap.Logger

	mu      sync.Mutex
	status  RunStatus
	records []PageRecord
}

// NewOrchestrator wires a run. capturer may be nil when screenshots are
// disabled; every other collaborator is required.
func NewOrchestrator(
	runID [16]byte,
	fetcher Fetcher,
	capturer Capturer,
	persister Persister,
	policy *Policy,
	ledger *Ledger,
	emitter progress.Emitter,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runID:     runID,
		fetcher:   fetcher,
		capturer:  capturer,
		persister: persister,
		policy:    policy,
		ledger:    ledger,
		emitter:   emitter,
		clock:     clock,
		logger:    logger,
		status:    RunStatusIdle,
	}
}

// Status returns the current lifecycle state.
func (o *Orchestrator) Status() RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Records returns the ordered result list accumulated so far.
func (o *Orchestrator) Records() []PageRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]PageRecord(nil), o.records...)
}

// Run executes the traversal from seedURL and blocks until the frontier
// drains or ctx is canceled. Cancellation is cooperative: it is honored only
// between frontier iterations, so an in-flight page is always fully persisted.
func (o *Orchestrator) Run(ctx context.Context, seedURL string) (Summary, error) {
	start := o.clock.Now()
	o.setStatus(RunStatusSeeding)
	o.emit(progress.Event{Stage: progress.StageStart})

	summary := Summary{}
	seed, err := Canonicalize(seedURL)
	if err != nil {
		o.setStatus(RunStatusAborted)
		o.emit(progress.Event{Stage: progress.StageError, URL: seedURL, Note: err.Error()})
		summary.Status = RunStatusAborted
		return summary, fmt.Errorf("canonicalize seed: %w", err)
	}

	frontier := NewFrontier()
	o.ledger.TryClaim(seed)
	frontier.Push(FrontierEntry{URL: seed, Depth: 0})

	o.setStatus(RunStatusDraining)
	var runErr error

	for {
		if ctx.Err() != nil {
			o.setStatus(RunStatusAborted)
			break
		}
		entry, ok := frontier.Pop()
		if !ok {
			o.setStatus(RunStatusCompleted)
			break
		}
		o.processEntry(ctx, entry, frontier, &summary, &runErr)
		if runErr != nil {
			o.setStatus(RunStatusAborted)
			break
		}
	}

	o.finishRun(ctx, &summary, start)
	return summary, runErr
}

// processEntry fetches one frontier entry, persists its record, and enqueues
// admitted outlinks. A lost browser session is propagated via runErr; every
// other fetch failure marks this page failed and leaves the run draining.
func (o *Orchestrator) processEntry(
	ctx context.Context,
	entry FrontierEntry,
	frontier *Frontier,
	summary *Summary,
	runErr *error,
) {
	o.logger.Info("processing page", zap.String("url", entry.URL), zap.Int("depth", entry.Depth))

	result, err := o.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		if errors.Is(err, ErrSessionLost) {
			*runErr = err
			o.emit(progress.Event{Stage: progress.StageError, URL: entry.URL, Note: err.Error()})
			return
		}
		summary.Failures++
		o.logger.Warn("page fetch failed", zap.String("url", entry.URL), zap.Error(err))
		o.emit(progress.Event{Stage: progress.StageError, URL: entry.URL, Note: err.Error()})
		return
	}

	// A redirect may land on an already-claimed page; re-check the ledger
	// against the effective URL before persisting anything.
	canonical := entry.URL
	if effective, cErr := Canonicalize(result.FinalURL); cErr == nil && effective != entry.URL {
		if !o.ledger.TryClaim(effective) {
			summary.Duplicates++
			o.logger.Debug("redirect landed on a visited page",
				zap.String("requested", entry.URL),
				zap.String("effective", effective),
			)
			return
		}
		canonical = effective
	}

	record := o.persistPage(ctx, canonical, entry.Depth, result)
	o.appendRecord(record)
	o.emit(progress.Event{Stage: progress.StagePageVisit, URL: canonical, Depth: entry.Depth})

	for _, link := range result.Links {
		candidate, cErr := Canonicalize(link.URL)
		if cErr != nil {
			continue
		}
		if !o.policy.Admit(candidate, entry.Depth) {
			continue
		}
		if !o.ledger.TryClaim(candidate) {
			continue
		}
		frontier.Push(FrontierEntry{URL: candidate, Depth: entry.Depth + 1})
		o.emit(progress.Event{Stage: progress.StageLinkFound, URL: candidate, Text: link.Text})
	}
}

// persistPage captures and stores the artifacts for one fetched page. Capture
// and persistence failures degrade the record but never discard it.
func (o *Orchestrator) persistPage(ctx context.Context, canonical string, depth int, result FetchResult) PageRecord {
	record := PageRecord{
		URL:       canonical,
		Title:     result.Title,
		Depth:     depth,
		FetchedAt: o.clock.Now(),
	}

	var screenshot []byte
	if o.capturer != nil {
		var err error
		screenshot, err = o.capturer.Capture(ctx)
		if err != nil {
			o.logger.Warn("screenshot capture failed", zap.String("url", canonical), zap.Error(err))
		}
	}

	htmlPath, htmlSize, err := o.persister.SaveHTML(ctx, canonical, result.HTML)
	if err != nil {
		o.logger.Error("persist html failed", zap.String("url", canonical), zap.Error(err))
		o.emit(progress.Event{Stage: progress.StageError, URL: canonical, Note: err.Error()})
	} else {
		record.HTMLHandle = htmlPath
		o.emit(progress.Event{Stage: progress.StageHTMLSave, Path: htmlPath, Bytes: htmlSize})
	}

	if len(screenshot) > 0 {
		shotPath, shotSize, err := o.persister.SaveScreenshot(ctx, canonical, screenshot)
		if err != nil {
			o.logger.Error("persist screenshot failed", zap.String("url", canonical), zap.Error(err))
			o.emit(progress.Event{Stage: progress.StageError, URL: canonical, Note: err.Error()})
		} else {
			record.ScreenshotHandle = shotPath
			o.emit(progress.Event{Stage: progress.StageScreenshotSave, Path: shotPath, Bytes: shotSize})
		}
	}

	return record
}

// finishRun writes the page index once and emits the terminal event. The
// index is written on abort too so a partial run remains inspectable.
func (o *Orchestrator) finishRun(ctx context.Context, summary *Summary, start time.Time) {
	records := o.Records()
	summary.Pages = len(records)
	summary.Status = o.Status()
	summary.Elapsed = o.clock.Now().Sub(start)

	// The index must be written even when the run was canceled.
	indexURI, err := o.persister.SaveIndex(context.WithoutCancel(ctx), records)
	if err != nil {
		o.logger.Error("persist page index failed", zap.Error(err))
		o.emit(progress.Event{Stage: progress.StageError, Note: err.Error()})
	} else {
		summary.IndexURI = indexURI
	}

	o.logger.Info("crawl finished",
		zap.String("status", string(summary.Status)),
		zap.Int("pages", summary.Pages),
		zap.Int("failures", summary.Failures),
		zap.Int("duplicates", summary.Duplicates),
		zap.Duration("elapsed", summary.Elapsed),
	)
	o.emit(progress.Event{Stage: progress.StageFinish, Pages: summary.Pages})
}

func (o *Orchestrator) appendRecord(record PageRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
}

func (o *Orchestrator) setStatus(status RunStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter == nil {
		return
	}
	evt.RunID = o.runID
	evt.TS = o.clock.Now()
	o.emitter.Emit(evt)
}

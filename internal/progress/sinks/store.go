package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siteatlas/siteatlas/internal/progress"
	"github.com/siteatlas/siteatlas/internal/store"
)

// StoreSink persists progress deltas into a store.RunRepository. Counter
// events are collapsed per run before writing to reduce write amplification.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume collapses run deltas and forwards them to the repository. It
// respects ctx deadlines and returns repository errors verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	deltas := make(map[[16]byte]*store.RunDeltas)

	for _, evt := range batch {
		runID := evt.RunUUID()
		switch evt.Stage {
		case progress.StageStart:
			if err := s.repo.UpsertRunStart(ctx, runID, evt.TS); err != nil {
				return fmt.Errorf("upsert run start: %w", err)
			}
		case progress.StageFinish:
			// The worker records the terminal outcome; the sink only flushes
			// whatever counters are still pending for the run.
			if err := s.flush(ctx, deltas); err != nil {
				return err
			}
		default:
			s.accumulate(deltas, evt)
		}
	}

	return s.flush(ctx, deltas)
}

func (s *StoreSink) accumulate(deltas map[[16]byte]*store.RunDeltas, evt progress.Event) {
	delta, ok := deltas[evt.RunID]
	if !ok {
		delta = &store.RunDeltas{}
		deltas[evt.RunID] = delta
	}
	delta.At = evt.TS
	switch evt.Stage {
	case progress.StagePageVisit:
		delta.Pages++
		delta.LastURL = evt.URL
	case progress.StageLinkFound:
		delta.Links++
	case progress.StageHTMLSave:
		delta.HTMLBytes += evt.Bytes
	case progress.StageScreenshotSave:
		delta.ScreenshotBytes += evt.Bytes
	case progress.StageError:
		delta.Failures++
		delta.LastError = evt.Note
	}
}

func (s *StoreSink) flush(ctx context.Context, deltas map[[16]byte]*store.RunDeltas) error {
	for rawID, delta := range deltas {
		if *delta == (store.RunDeltas{}) {
			continue
		}
		runID := progress.Event{RunID: rawID}.RunUUID()
		if err := s.repo.ApplyDeltas(ctx, runID, *delta); err != nil {
			return fmt.Errorf("apply run deltas: %w", err)
		}
		delete(deltas, rawID)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

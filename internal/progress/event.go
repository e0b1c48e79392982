// Package progress defines the lifecycle event stream emitted by crawl runs
// and the non-blocking hub that fans events out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the lifecycle milestone represented by an Event.
type Stage string

// Supported lifecycle stages.
const (
	StageStart          Stage = "start"
	StagePageVisit      Stage = "page_visit"
	StageLinkFound      Stage = "link_found"
	StageHTMLSave       Stage = "html_save"
	StageScreenshotSave Stage = "screenshot_save"
	StageError          Stage = "error"
	StageFinish         Stage = "finish"
)

// Event captures a single crawl progress milestone.
type Event struct {
	// RunID uniquely identifies a crawl run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is the canonical page URL for page_visit, link_found, and error.
	URL string
	// Depth is the traversal depth for page_visit events.
	Depth int
	// Text carries the anchor text for link_found events.
	Text string
	// Path is the artifact handle for html_save and screenshot_save.
	Path string
	// Bytes is the artifact size for html_save and screenshot_save.
	Bytes int64
	// Pages carries the final page count on finish.
	Pages int
	// Note carries the error message for error events.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageStart, StageFinish:
	case StagePageVisit, StageLinkFound:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	case StageHTMLSave, StageScreenshotSave:
		if e.Path == "" {
			return fmt.Errorf("%s requires path", e.Stage)
		}
	case StageError:
		if e.Note == "" {
			return errors.New("error requires note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for stores and APIs.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

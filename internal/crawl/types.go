package crawl

import (
	"context"
	"time"
)

// RunStatus represents the lifecycle state of a crawl run.
type RunStatus string

// Run status values reported by the orchestrator and run store.
const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusSeeding   RunStatus = "seeding"
	RunStatusDraining  RunStatus = "draining"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
)

// Link is an outbound anchor discovered on a fetched page. URL is always an
// absolute http(s) URL; relative, javascript:, and bare-fragment links are
// filtered out by the fetcher.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// FetchResult is the payload returned by a Fetcher for one page.
type FetchResult struct {
	// FinalURL is the effective URL after redirects.
	FinalURL string
	Title    string
	HTML     []byte
	Links    []Link
	Duration time.Duration
}

// PageRecord is created once per unique successfully fetched page and is
// immutable afterwards. ScreenshotHandle is empty when capture is disabled or
// failed; HTMLHandle is empty only when persistence failed.
type PageRecord struct {
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	HTMLHandle       string    `json:"html_path"`
	ScreenshotHandle string    `json:"screenshot_path,omitempty"`
	Depth            int       `json:"depth"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// FrontierEntry is a discovered-but-unprocessed (URL, depth) pair. URL is
// already canonical and claimed in the ledger by the time it is enqueued.
type FrontierEntry struct {
	URL   string
	Depth int
}

// Summary reports run totals after the frontier drains.
type Summary struct {
	Status     RunStatus
	Pages      int
	Failures   int
	Duplicates int
	IndexURI   string
	Elapsed    time.Duration
}

// Fetcher drives the browser (or an HTTP client) for one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Capturer produces a full-page screenshot for the page currently loaded in
// the browser. Implementations fall back to a plain viewport capture when
// compositing fails.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Persister writes page artifacts and returns stable handles.
type Persister interface {
	SaveHTML(ctx context.Context, canonicalURL string, html []byte) (string, int64, error)
	SaveScreenshot(ctx context.Context, canonicalURL string, png []byte) (string, int64, error)
	SaveIndex(ctx context.Context, records []PageRecord) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

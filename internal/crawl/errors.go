package crawl

import "errors"

// Sentinel errors classifying fetch failures. Navigation timeouts and
// unexpected fetch errors mark a single page failed and the traversal
// continues; a lost browser session ends the run.
var (
	// ErrNavigationTimeout indicates the page did not reach DOM-ready within
	// the configured navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrSessionLost indicates the controlled browser is gone. This is the
	// only fetch failure that aborts a run.
	ErrSessionLost = errors.New("browser session lost")
)

package crawl

import "sync"

// Ledger is the exactly-once claim structure over canonical URLs for a single
// run. TryClaim is the sole source of the dedup guarantee: whatever the
// traversal order, a canonical URL is claimed by at most one caller.
type Ledger struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{claimed: make(map[string]struct{})}
}

// TryClaim atomically checks and inserts the canonical URL, returning true
// only to the first caller.
func (l *Ledger) TryClaim(canonicalURL string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.claimed[canonicalURL]; ok {
		return false
	}
	l.claimed[canonicalURL] = struct{}{}
	return true
}

// Claimed reports whether the canonical URL has already been claimed.
func (l *Ledger) Claimed(canonicalURL string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.claimed[canonicalURL]
	return ok
}

// Size returns the number of claimed URLs.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claimed)
}

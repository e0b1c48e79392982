package crawl

// Frontier holds discovered-but-unprocessed entries in FIFO order, giving the
// traversal breadth-first shape. It is owned by a single orchestrator and is
// deliberately unbounded: enqueueing during the drain loop must never block
// the exclusive browser.
type Frontier struct {
	entries []FrontierEntry
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{}
}

// Push appends an entry.
func (f *Frontier) Push(entry FrontierEntry) {
	f.entries = append(f.entries, entry)
}

// Pop removes and returns the oldest entry. The second return value is false
// when the frontier is empty.
func (f *Frontier) Pop() (FrontierEntry, bool) {
	if len(f.entries) == 0 {
		return FrontierEntry{}, false
	}
	entry := f.entries[0]
	f.entries = f.entries[1:]
	return entry, true
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return len(f.entries)
}

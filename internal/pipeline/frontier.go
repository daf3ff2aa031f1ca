package pipeline

import (
	"github.com/submarine-osint/submarine/internal/urlutil"
)

// frontierEntry is one candidate URL within a single domain crawl.
type frontierEntry struct {
	url    string // normalized
	depth  int
	parent string
}

// frontier is a FIFO of candidate URLs with a per-domain seen-set. URLs are
// normalized before dedup, so two spellings of the same page collapse into
// one entry for the lifetime of the pipeline.
type frontier struct {
	queue []frontierEntry
	seen  map[uint64]struct{}
}

func newFrontier() *frontier {
	return &frontier{seen: make(map[uint64]struct{})}
}

// push normalizes rawURL and appends it unless it was seen before. Returns
// true when the URL was enqueued.
func (f *frontier) push(rawURL string, depth int, parent string) bool {
	normalized, err := urlutil.Normalize(rawURL)
	if err != nil {
		return false
	}
	key := urlutil.Hash(normalized)
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	f.queue = append(f.queue, frontierEntry{url: normalized, depth: depth, parent: parent})
	return true
}

// mark records rawURL as seen without enqueueing it. Used for redirect
// targets so the final URL of a fetched page is not crawled again.
func (f *frontier) mark(rawURL string) {
	normalized, err := urlutil.Normalize(rawURL)
	if err != nil {
		return
	}
	f.seen[urlutil.Hash(normalized)] = struct{}{}
}

// pop removes the oldest entry.
func (f *frontier) pop() (frontierEntry, bool) {
	if len(f.queue) == 0 {
		return frontierEntry{}, false
	}
	e := f.queue[0]
	f.queue = f.queue[1:]
	return e, true
}

func (f *frontier) len() int { return len(f.queue) }

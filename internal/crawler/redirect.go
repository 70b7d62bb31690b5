package crawler

import "sync"

// RedirectTracker records the chain of redirect hops per origin URL so
// the fetcher can abandon tasks that loop or redirect excessively.
// Entries persist for the run; the map is bounded by the number of
// distinct origins that actually redirect, which is small relative to
// total crawl volume.
type RedirectTracker struct {
	mu           sync.Mutex
	chains       map[string][]string
	maxRedirects int
}

// NewRedirectTracker returns a tracker that rejects chains longer than
// maxRedirects hops. Non-positive values fall back to 5.
func NewRedirectTracker(maxRedirects int) *RedirectTracker {
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	return &RedirectTracker{
		chains:       make(map[string][]string),
		maxRedirects: maxRedirects,
	}
}

// StartTracking initializes the chain for an origin URL.
func (rt *RedirectTracker) StartTracking(origin string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.chains[origin] = []string{origin}
}

// AddRedirect appends the next hop to the origin's chain. It returns
// false when the hop already occurs in the chain (a loop) or the chain
// now exceeds the maximum length; the caller must abandon the fetch.
func (rt *RedirectTracker) AddRedirect(origin, next string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	chain, ok := rt.chains[origin]
	if !ok {
		chain = []string{origin}
	}

	for _, hop := range chain {
		if hop == next {
			return false
		}
	}

	chain = append(chain, next)
	rt.chains[origin] = chain

	// The origin itself occupies the first slot.
	return len(chain)-1 <= rt.maxRedirects
}

// Chain returns a copy of the origin's redirect chain. An untracked
// origin yields a single-element chain containing itself.
func (rt *RedirectTracker) Chain(origin string) []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	chain, ok := rt.chains[origin]
	if !ok {
		return []string{origin}
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// InChain reports whether candidate appears in origin's chain. The
// fetcher uses this to avoid re-queuing a critical application link
// that is already a hop of an active redirect, which would oscillate
// between a page and its own redirect target.
func (rt *RedirectTracker) InChain(origin, candidate string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, hop := range rt.chains[origin] {
		if hop == candidate {
			return true
		}
	}
	return false
}

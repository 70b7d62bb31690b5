package crawler

import (
	"container/heap"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ghoulbites/applycrawl/internal/model"
	"golang.org/x/time/rate"
)

// pacingPenalty is added to a task's priority each time pacing pushes
// it back, so a stalled domain slowly loses urgency against others.
const pacingPenalty = 0.1

// pacingRetrySleep is how long Get sleeps before retrying after a
// paced push-back.
const pacingRetrySleep = 100 * time.Millisecond

// emptyPollInterval is how often Get re-checks an empty frontier.
const emptyPollInterval = 50 * time.Millisecond

// FrontierOptions bound the frontier's memory and request rate.
type FrontierOptions struct {
	// MaxQueueSize caps the number of tasks held at once.
	MaxQueueSize int

	// MaxURLsPerDomain caps each domain's total contribution
	// (visited plus currently queued).
	MaxURLsPerDomain int

	// MaxTotalURLs caps admissions for the whole run.
	MaxTotalURLs int

	// MinInterval is the minimum spacing between dequeues for the same
	// domain, enforced at Get time.
	MinInterval time.Duration

	// DomainCheck optionally rejects tasks whose domain fails an
	// existence check. Nil disables the check.
	DomainCheck func(domain string) bool
}

// Frontier is the priority queue of not-yet-fetched URLs. Admission
// control (memory bounding) happens at Put; politeness pacing (request
// rate bounding) happens at Get, so the queue itself enforces
// per-domain spacing no matter how many workers drain it. The two are
// deliberately separate: one lock conflating them would serialize
// unrelated domains.
type Frontier struct {
	mu       sync.Mutex
	items    taskHeap
	seq      uint64
	pending  int
	queued   map[string]int
	limiters map[string]*rate.Limiter

	state *State
	opts  FrontierOptions
}

// NewFrontier creates a Frontier deduplicating against the given
// State. The State's TryMarkVisited is the sole at-most-once gate.
func NewFrontier(state *State, opts FrontierOptions) *Frontier {
	return &Frontier{
		queued:   make(map[string]int),
		limiters: make(map[string]*rate.Limiter),
		state:    state,
		opts:     opts,
	}
}

// Put offers a task to the frontier. It returns false when the global
// URL cap or queue size is reached, the URL was already seen, the
// task's domain fails the existence check, or the per-domain cap is
// reached. Critical tasks (priority at or below CriticalThreshold)
// bypass the size and per-domain caps so top-value links are never
// starved by admission control. Rejections are logged at debug level
// only; they are resource-limit outcomes, not errors.
func (f *Frontier) Put(task model.CrawlTask) bool {
	if f.state.URLLimitReached(f.opts.MaxTotalURLs) {
		return false
	}

	domain := domainOf(task.URL)
	if domain == "" {
		return false
	}
	critical := task.Priority <= CriticalThreshold

	if f.opts.DomainCheck != nil && !f.opts.DomainCheck(domain) {
		slog.Debug("frontier rejected dead domain", "domain", domain)
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !critical && f.items.Len() >= f.opts.MaxQueueSize {
		slog.Debug("frontier full", "url", task.URL)
		return false
	}
	if !critical && f.queued[domain]+f.state.DomainCount(domain) >= f.opts.MaxURLsPerDomain {
		slog.Debug("domain cap reached", "domain", domain)
		return false
	}

	// The visited gate runs last so cap rejections leave the URL
	// re-discoverable later in the run.
	if !f.state.TryMarkVisited(task.URL) {
		return false
	}

	f.state.IncrementQueued()
	f.queued[domain]++
	f.seq++
	heap.Push(&f.items, frontierItem{task: task, domain: domain, seq: f.seq})
	f.pending++
	return true
}

// Get removes and returns the most urgent task. When the minimum
// inter-request interval for the task's domain has not yet elapsed,
// the task is pushed back with slightly reduced urgency and Get
// retries after a short sleep. Get blocks until a task is available or
// ctx is done.
func (f *Frontier) Get(ctx context.Context) (model.CrawlTask, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.CrawlTask{}, err
		}

		f.mu.Lock()
		if f.items.Len() == 0 {
			f.mu.Unlock()
			select {
			case <-ctx.Done():
				return model.CrawlTask{}, ctx.Err()
			case <-time.After(emptyPollInterval):
			}
			continue
		}

		item := heap.Pop(&f.items).(frontierItem)
		limiter := f.limiterLocked(item.domain)
		if !limiter.Allow() {
			// Too soon for this domain: push back and let another
			// domain's task surface.
			item.task.Priority += pacingPenalty
			heap.Push(&f.items, item)
			f.mu.Unlock()
			select {
			case <-ctx.Done():
				return model.CrawlTask{}, ctx.Err()
			case <-time.After(pacingRetrySleep):
			}
			continue
		}

		f.queued[item.domain]--
		f.mu.Unlock()
		return item.task, nil
	}
}

// limiterLocked returns the domain's rate limiter, creating it on
// first use. Callers hold f.mu.
func (f *Frontier) limiterLocked(domain string) *rate.Limiter {
	limiter, ok := f.limiters[domain]
	if !ok {
		interval := f.opts.MinInterval
		if interval <= 0 {
			return rate.NewLimiter(rate.Inf, 1)
		}
		limiter = rate.NewLimiter(rate.Every(interval), 1)
		f.limiters[domain] = limiter
	}
	return limiter
}

// TaskDone marks one previously dequeued task as fully processed.
func (f *Frontier) TaskDone() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
	}
}

// Join blocks until every admitted task has been dequeued and marked
// done, or ctx is cancelled.
func (f *Frontier) Join(ctx context.Context) error {
	ticker := time.NewTicker(emptyPollInterval)
	defer ticker.Stop()
	for {
		f.mu.Lock()
		drained := f.pending == 0 && f.items.Len() == 0
		f.mu.Unlock()
		if drained {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Len returns the number of tasks currently held.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Len()
}

// Empty reports whether the frontier currently holds no tasks.
func (f *Frontier) Empty() bool {
	return f.Len() == 0
}

// domainOf extracts the lowercased host from a URL, or "" when the URL
// does not parse.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// frontierItem is a heap entry: the task, its domain (pre-parsed so
// pacing never re-parses under the lock), and a sequence number that
// keeps ordering stable for equal priorities.
type frontierItem struct {
	task   model.CrawlTask
	domain string
	seq    uint64
}

type taskHeap []frontierItem

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(frontierItem))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

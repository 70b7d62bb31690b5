package crawler

import (
	"sort"
	"sync"
	"time"

	"github.com/ghoulbites/applycrawl/internal/model"
)

// State is the single source of truth for a crawl run: the visited-URL
// set, global and per-domain counters, the admission-relevant domain
// set, discovered candidate pages, and the running flag.
//
// Each field group sits behind its own mutex so unrelated operations
// never serialize against each other. All reads return snapshots;
// callers never observe internal storage. A State is constructed fresh
// per run, so tests build isolated instances instead of sharing
// process-wide globals.
type State struct {
	visitedMu sync.Mutex
	visited   map[string]struct{}

	counterMu sync.Mutex
	visitedN  int
	queuedN   int

	domainMu     sync.Mutex
	domainCounts map[string]int

	admissionMu      sync.Mutex
	admissionDomains map[string]struct{}

	candidateMu sync.Mutex
	candidates  []model.CandidatePage

	runningMu sync.Mutex
	running   bool
}

// NewState returns a running State with empty tracking structures.
func NewState() *State {
	return &State{
		visited:          make(map[string]struct{}),
		domainCounts:     make(map[string]int),
		admissionDomains: make(map[string]struct{}),
		running:          true,
	}
}

// TryMarkVisited atomically tests and inserts a normalized URL.
// It returns false if the URL was already present. This is the single
// chokepoint guaranteeing at-most-once enqueue per URL for the run.
func (s *State) TryMarkVisited(url string) bool {
	s.visitedMu.Lock()
	defer s.visitedMu.Unlock()
	if _, ok := s.visited[url]; ok {
		return false
	}
	s.visited[url] = struct{}{}
	return true
}

// MarkVisited unconditionally records a URL as seen. The fetcher uses
// it for redirect destinations, which arrive outside the admission
// path.
func (s *State) MarkVisited(url string) {
	s.visitedMu.Lock()
	defer s.visitedMu.Unlock()
	s.visited[url] = struct{}{}
}

// Visited reports whether a URL has been seen.
func (s *State) Visited(url string) bool {
	s.visitedMu.Lock()
	defer s.visitedMu.Unlock()
	_, ok := s.visited[url]
	return ok
}

// VisitedCount returns the size of the visited set.
func (s *State) VisitedCount() int {
	s.visitedMu.Lock()
	defer s.visitedMu.Unlock()
	return len(s.visited)
}

// IncrementVisited bumps the fetched-page counter and returns it.
func (s *State) IncrementVisited() int {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	s.visitedN++
	return s.visitedN
}

// IncrementQueued bumps the admitted-task counter and returns it.
func (s *State) IncrementQueued() int {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	s.queuedN++
	return s.queuedN
}

// Counters returns the current visited/queued counter values.
func (s *State) Counters() (visited, queued int) {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	return s.visitedN, s.queuedN
}

// URLLimitReached reports whether the admitted-task counter has hit
// the global cap.
func (s *State) URLLimitReached(limit int) bool {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	return s.queuedN >= limit
}

// IncrementDomain bumps a domain's visit counter and returns it.
func (s *State) IncrementDomain(domain string) int {
	s.domainMu.Lock()
	defer s.domainMu.Unlock()
	s.domainCounts[domain]++
	return s.domainCounts[domain]
}

// DomainCount returns one domain's current count.
func (s *State) DomainCount(domain string) int {
	s.domainMu.Lock()
	defer s.domainMu.Unlock()
	return s.domainCounts[domain]
}

// DomainCounts returns a copy of the per-domain counters.
func (s *State) DomainCounts() map[string]int {
	s.domainMu.Lock()
	defer s.domainMu.Unlock()
	out := make(map[string]int, len(s.domainCounts))
	for d, c := range s.domainCounts {
		out[d] = c
	}
	return out
}

// TopDomains returns the n most-visited domains, sorted by count
// descending with domain name as the tie-break.
func (s *State) TopDomains(n int) []model.DomainCount {
	counts := s.DomainCounts()
	out := make([]model.DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, model.DomainCount{Domain: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// AddAdmissionDomain marks a domain as admission-relevant. The set is
// append-only for the lifetime of the run.
func (s *State) AddAdmissionDomain(domain string) {
	s.admissionMu.Lock()
	defer s.admissionMu.Unlock()
	s.admissionDomains[domain] = struct{}{}
}

// AdmissionDomains returns a sorted copy of the admission-domain set.
func (s *State) AdmissionDomains() []string {
	s.admissionMu.Lock()
	defer s.admissionMu.Unlock()
	out := make([]string, 0, len(s.admissionDomains))
	for d := range s.admissionDomains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// AddCandidate appends a discovered candidate page.
func (s *State) AddCandidate(page model.CandidatePage) {
	s.candidateMu.Lock()
	defer s.candidateMu.Unlock()
	s.candidates = append(s.candidates, page)
}

// Candidates returns a copy of the candidate list, so callers can
// iterate while workers keep appending.
func (s *State) Candidates() []model.CandidatePage {
	s.candidateMu.Lock()
	defer s.candidateMu.Unlock()
	out := make([]model.CandidatePage, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// CandidateCount returns the number of candidates found so far.
func (s *State) CandidateCount() int {
	s.candidateMu.Lock()
	defer s.candidateMu.Unlock()
	return len(s.candidates)
}

// Stop signals the run to end. Stop is idempotent and immediately
// visible to all Running callers.
func (s *State) Stop() {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	s.running = false
}

// Running reports whether the run is still active.
func (s *State) Running() bool {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	return s.running
}

// Stats returns a point-in-time snapshot of all counters for the
// monitor, checkpoint manager, and final report.
func (s *State) Stats() model.CrawlStats {
	visited, queued := s.Counters()
	return model.CrawlStats{
		Timestamp:        time.Now().UTC(),
		Visited:          visited,
		Queued:           queued,
		Candidates:       s.CandidateCount(),
		DomainCounts:     s.DomainCounts(),
		AdmissionDomains: s.AdmissionDomains(),
	}
}

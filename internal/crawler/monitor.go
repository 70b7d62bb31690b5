package crawler

import (
	"context"
	"log/slog"
	"time"
)

// emptyObservationsToStop is how many consecutive empty observations
// the monitor requires before declaring the crawl finished. Two
// observations one interval apart tolerate the window where every
// worker has dequeued its task but none has expanded links yet.
const emptyObservationsToStop = 2

// topDomainsLogged caps how many domains appear in progress lines.
const topDomainsLogged = 5

// Monitor watches a running crawl: it logs progress periodically,
// stops the run when the frontier stays empty with no tasks in flight,
// and stops it when the global URL cap is reached.
type Monitor struct {
	state    *State
	frontier *Frontier
	shutdown *ShutdownController

	interval     time.Duration
	maxTotalURLs int
}

// NewMonitor builds a monitor; interval controls both progress logging
// and completion checks.
func NewMonitor(state *State, frontier *Frontier, shutdown *ShutdownController, interval time.Duration, maxTotalURLs int) *Monitor {
	return &Monitor{
		state:        state,
		frontier:     frontier,
		shutdown:     shutdown,
		interval:     interval,
		maxTotalURLs: maxTotalURLs,
	}
}

// Run blocks until the crawl completes, the URL cap is reached, or ctx
// is cancelled. It calls State.Stop before returning so workers wind
// down.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	emptyObservations := 0
	var lastVisited int

	for {
		select {
		case <-ctx.Done():
			m.state.Stop()
			return
		case <-ticker.C:
		}

		if !m.state.Running() || m.shutdown.ShutdownRequested() {
			m.state.Stop()
			return
		}

		visited, queued := m.state.Counters()
		rate := float64(visited-lastVisited) / m.interval.Seconds()
		lastVisited = visited

		slog.Info("crawl progress",
			"visited", visited,
			"queued", queued,
			"frontier", m.frontier.Len(),
			"candidates", m.state.CandidateCount(),
			"admission_domains", len(m.state.AdmissionDomains()),
			"pages_per_sec", rate,
		)
		for _, dc := range m.state.TopDomains(topDomainsLogged) {
			slog.Debug("domain visits", "domain", dc.Domain, "count", dc.Count)
		}

		if m.state.URLLimitReached(m.maxTotalURLs) {
			slog.Info("global URL limit reached, stopping crawl", "limit", m.maxTotalURLs)
			m.state.Stop()
			return
		}

		if m.frontier.Empty() && m.shutdown.ActiveTasks() == 0 {
			emptyObservations++
			if emptyObservations >= emptyObservationsToStop {
				slog.Info("frontier drained, stopping crawl", "visited", visited)
				m.state.Stop()
				return
			}
		} else {
			emptyObservations = 0
		}
	}
}

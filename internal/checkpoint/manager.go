// Package checkpoint batches candidate pages for evaluation and
// persists recovery snapshots. Artifacts are JSON files under a
// per-run directory; they are internal recovery aids, not a stable
// format.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ghoulbites/applycrawl/internal/model"
	"github.com/google/uuid"
)

// StateRecorder receives every candidate the manager ingests, so the
// crawl state store stays the single source of truth for reporting.
type StateRecorder interface {
	AddCandidate(page model.CandidatePage)
}

// runInfo is written once at construction so a crash leaves behind at
// least the identity of the run.
type runInfo struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Targets   []string  `json:"targets"`
}

// Manager accumulates candidate pages and decides when a batch is
// ready for evaluation: once at least MinBatch are pending and either
// MaxBatch is reached or the checkpoint interval has elapsed. All list
// operations are short and lock-bounded; file writes happen outside
// the lock on copied snapshots.
type Manager struct {
	mu             sync.Mutex
	pending        []model.CandidatePage
	evaluated      []model.CandidatePage
	lastCheckpoint time.Time
	batchSeq       int

	minBatch int
	maxBatch int
	interval time.Duration

	runID    string
	dir      string
	recorder StateRecorder
}

// NewManager creates the run directory under baseDir, writes the
// run-info file, and returns a manager with a fresh checkpoint clock.
// recorder may be nil when no write-through is wanted.
func NewManager(baseDir string, minBatch, maxBatch int, interval time.Duration, targets []string, recorder StateRecorder) (*Manager, error) {
	runID := uuid.NewString()
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	m := &Manager{
		lastCheckpoint: time.Now(),
		minBatch:       minBatch,
		maxBatch:       maxBatch,
		interval:       interval,
		runID:          runID,
		dir:            dir,
		recorder:       recorder,
	}

	info := runInfo{RunID: runID, StartedAt: time.Now().UTC(), Targets: targets}
	if err := m.writeJSON("run_info.json", info); err != nil {
		return nil, err
	}
	return m, nil
}

// RunID returns the run's identifier.
func (m *Manager) RunID() string { return m.runID }

// Dir returns the run's checkpoint directory.
func (m *Manager) Dir() string { return m.dir }

// AddCandidate ingests a candidate page, writing it through to the
// state recorder, and reports whether a batch should be processed now:
// pending has reached the minimum size and either the maximum size or
// the checkpoint interval has been hit.
func (m *Manager) AddCandidate(page model.CandidatePage) bool {
	if m.recorder != nil {
		m.recorder.AddCandidate(page)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, page)

	if len(m.pending) < m.minBatch {
		return false
	}
	return len(m.pending) >= m.maxBatch || time.Since(m.lastCheckpoint) >= m.interval
}

// DrainBatch removes and returns up to MaxBatch pending candidates,
// oldest first, and resets the checkpoint clock.
func (m *Manager) DrainBatch() []model.CandidatePage {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.pending)
	if n == 0 {
		return nil
	}
	if n > m.maxBatch {
		n = m.maxBatch
	}
	batch := make([]model.CandidatePage, n)
	copy(batch, m.pending[:n])
	m.pending = m.pending[n:]
	m.lastCheckpoint = time.Now()
	return batch
}

// PendingCount returns the number of candidates awaiting evaluation.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// RecordEvaluated appends an evaluated batch to the cumulative list
// and persists both the batch and the cumulative list. Persistence is
// best-effort: failures are logged, never returned.
func (m *Manager) RecordEvaluated(batch []model.CandidatePage) {
	if len(batch) == 0 {
		return
	}

	m.mu.Lock()
	m.evaluated = append(m.evaluated, batch...)
	m.batchSeq++
	seq := m.batchSeq
	cumulative := make([]model.CandidatePage, len(m.evaluated))
	copy(cumulative, m.evaluated)
	m.mu.Unlock()

	if err := m.writeJSON(fmt.Sprintf("batch_%03d.json", seq), batch); err != nil {
		slog.Warn("checkpoint batch write failed", "error", err)
	}
	if err := m.writeJSON("evaluated.json", cumulative); err != nil {
		slog.Warn("checkpoint cumulative write failed", "error", err)
	}
}

// Evaluated returns a copy of all evaluated candidates so far.
func (m *Manager) Evaluated() []model.CandidatePage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CandidatePage, len(m.evaluated))
	copy(out, m.evaluated)
	return out
}

// SnapshotCrawlState persists the run's counters and domain stats for
// possible resume. Best-effort: failure is logged, not fatal.
func (m *Manager) SnapshotCrawlState(stats model.CrawlStats) {
	if err := m.writeJSON("crawl_state.json", stats); err != nil {
		slog.Warn("crawl state snapshot failed", "error", err)
	}
}

func (m *Manager) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghoulbites/applycrawl/internal/model"
)

type recorderSpy struct {
	pages []model.CandidatePage
}

func (r *recorderSpy) AddCandidate(page model.CandidatePage) {
	r.pages = append(r.pages, page)
}

func candidate(url string) model.CandidatePage {
	return model.CandidatePage{URL: url, Title: "Apply", TargetName: "State University"}
}

// TestNewManager tests run directory creation and the run-info file.
func TestNewManager(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	m, err := NewManager(base, 2, 5, time.Minute, []string{"State University"}, nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if m.RunID() == "" {
		t.Error("expected non-empty run id")
	}
	if filepath.Dir(m.Dir()) != base {
		t.Errorf("expected run dir under base, got %s", m.Dir())
	}

	data, err := os.ReadFile(filepath.Join(m.Dir(), "run_info.json"))
	if err != nil {
		t.Fatalf("failed to read run info: %v", err)
	}
	var info runInfo
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("failed to decode run info: %v", err)
	}
	if info.RunID != m.RunID() {
		t.Errorf("run info id %s does not match %s", info.RunID, m.RunID())
	}
	if len(info.Targets) != 1 || info.Targets[0] != "State University" {
		t.Errorf("unexpected targets %v", info.Targets)
	}
}

// TestAddCandidateTrigger tests the batch-readiness rule.
func TestAddCandidateTrigger(t *testing.T) {
	t.Parallel()

	t.Run("below minimum never triggers", func(t *testing.T) {
		t.Parallel()

		m, err := NewManager(t.TempDir(), 3, 5, time.Nanosecond, nil, nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if m.AddCandidate(candidate("https://x.edu/1")) {
			t.Error("one candidate should not trigger with minimum 3")
		}
		if m.AddCandidate(candidate("https://x.edu/2")) {
			t.Error("two candidates should not trigger with minimum 3")
		}
	})

	t.Run("interval elapsed triggers at minimum", func(t *testing.T) {
		t.Parallel()

		m, err := NewManager(t.TempDir(), 2, 100, time.Nanosecond, nil, nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		m.AddCandidate(candidate("https://x.edu/1"))
		time.Sleep(time.Millisecond)
		if !m.AddCandidate(candidate("https://x.edu/2")) {
			t.Error("expected trigger once minimum reached and interval elapsed")
		}
	})

	t.Run("maximum triggers regardless of interval", func(t *testing.T) {
		t.Parallel()

		m, err := NewManager(t.TempDir(), 1, 3, time.Hour, nil, nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if m.AddCandidate(candidate("https://x.edu/1")) {
			t.Error("one pending should not trigger below maximum with a long interval")
		}
		m.AddCandidate(candidate("https://x.edu/2"))
		if !m.AddCandidate(candidate("https://x.edu/3")) {
			t.Error("expected trigger at maximum batch size")
		}
	})
}

// TestAddCandidateWriteThrough tests the state recorder hook.
func TestAddCandidateWriteThrough(t *testing.T) {
	t.Parallel()

	spy := &recorderSpy{}
	m, err := NewManager(t.TempDir(), 2, 5, time.Minute, nil, spy)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	m.AddCandidate(candidate("https://x.edu/apply"))
	if len(spy.pages) != 1 || spy.pages[0].URL != "https://x.edu/apply" {
		t.Errorf("expected write-through to recorder, got %v", spy.pages)
	}
}

// TestDrainBatch tests size capping and ordering.
func TestDrainBatch(t *testing.T) {
	t.Parallel()

	m, err := NewManager(t.TempDir(), 1, 3, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	urls := []string{"https://x.edu/1", "https://x.edu/2", "https://x.edu/3", "https://x.edu/4", "https://x.edu/5"}
	for _, u := range urls {
		m.AddCandidate(candidate(u))
	}

	batch := m.DrainBatch()
	if len(batch) != 3 {
		t.Fatalf("expected batch capped at 3, got %d", len(batch))
	}
	for i, page := range batch {
		if page.URL != urls[i] {
			t.Errorf("expected oldest-first order, got %s at %d", page.URL, i)
		}
	}
	if m.PendingCount() != 2 {
		t.Errorf("expected 2 pending after drain, got %d", m.PendingCount())
	}

	rest := m.DrainBatch()
	if len(rest) != 2 {
		t.Errorf("expected remaining 2, got %d", len(rest))
	}
	if m.DrainBatch() != nil {
		t.Error("expected nil batch when nothing is pending")
	}
}

// TestRecordEvaluated tests batch files and the cumulative list.
func TestRecordEvaluated(t *testing.T) {
	t.Parallel()

	m, err := NewManager(t.TempDir(), 1, 10, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	first := []model.CandidatePage{candidate("https://x.edu/1")}
	second := []model.CandidatePage{candidate("https://x.edu/2"), candidate("https://x.edu/3")}
	m.RecordEvaluated(first)
	m.RecordEvaluated(second)
	m.RecordEvaluated(nil) // no-op

	if got := m.Evaluated(); len(got) != 3 {
		t.Fatalf("expected 3 evaluated candidates, got %d", len(got))
	}

	for _, name := range []string{"batch_001.json", "batch_002.json", "evaluated.json"} {
		data, err := os.ReadFile(filepath.Join(m.Dir(), name))
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		var pages []model.CandidatePage
		if err := json.Unmarshal(data, &pages); err != nil {
			t.Fatalf("failed to decode %s: %v", name, err)
		}
	}

	var cumulative []model.CandidatePage
	data, err := os.ReadFile(filepath.Join(m.Dir(), "evaluated.json"))
	if err != nil {
		t.Fatalf("failed to read cumulative file: %v", err)
	}
	if err := json.Unmarshal(data, &cumulative); err != nil {
		t.Fatalf("failed to decode cumulative file: %v", err)
	}
	if len(cumulative) != 3 {
		t.Errorf("expected 3 cumulative entries, got %d", len(cumulative))
	}
}

// TestSnapshotCrawlState tests the recovery snapshot file.
func TestSnapshotCrawlState(t *testing.T) {
	t.Parallel()

	m, err := NewManager(t.TempDir(), 1, 10, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	m.SnapshotCrawlState(model.CrawlStats{Visited: 42, Queued: 7})

	data, err := os.ReadFile(filepath.Join(m.Dir(), "crawl_state.json"))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var stats model.CrawlStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if stats.Visited != 42 || stats.Queued != 7 {
		t.Errorf("unexpected snapshot %+v", stats)
	}
}

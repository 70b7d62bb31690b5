package database

import (
	"context"
	"os"
	"testing"

	"github.com/ghoulbites/applycrawl/internal/model"
)

func openTestDB(t *testing.T) *CrawlDB {
	t.Helper()
	cdb, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = cdb.Close() })
	return cdb
}

// TestOpen tests file creation and reopening against the same path.
func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cdb, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := os.Stat(cdb.Path()); err != nil {
		t.Errorf("expected database file on disk: %v", err)
	}
	if err := cdb.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	// Reopen must tolerate the existing schema.
	again, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	_ = again.Close()
}

// TestRunLifecycle tests StartRun, EndRun, and the history query.
func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	if err := cdb.StartRun(ctx, "run-1", []string{"State University"}); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}
	stats := model.CrawlStats{Visited: 120, Queued: 340, Candidates: 7}
	if err := cdb.EndRun(ctx, "run-1", stats); err != nil {
		t.Fatalf("failed to end run: %v", err)
	}

	summaries, err := cdb.RunSummaries(ctx, 10)
	if err != nil {
		t.Fatalf("failed to query runs: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 run, got %d", len(summaries))
	}
	s := summaries[0]
	if s.ID != "run-1" {
		t.Errorf("unexpected run id %s", s.ID)
	}
	if len(s.Targets) != 1 || s.Targets[0] != "State University" {
		t.Errorf("unexpected targets %v", s.Targets)
	}
	if s.Visited != 120 || s.Queued != 340 || s.Candidates != 7 {
		t.Errorf("unexpected counters %+v", s)
	}
	if s.StartedAt.IsZero() {
		t.Error("expected started_at parsed")
	}
	if s.EndedAt.IsZero() {
		t.Error("expected ended_at parsed")
	}
}

// TestSaveCandidates tests the batch upsert and readback.
func TestSaveCandidates(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	if err := cdb.StartRun(ctx, "run-1", nil); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	pages := []model.CandidatePage{
		{
			URL:        "https://x.edu/apply",
			Title:      "Apply",
			TargetName: "State University",
			Reasons:    []string{"url pattern: /apply/?$"},
			Depth:      1,
		},
		{
			URL:        "https://x.edu/admissions",
			Title:      "Admissions",
			TargetName: "State University",
			Depth:      2,
		},
	}
	if err := cdb.SaveCandidates(ctx, "run-1", pages); err != nil {
		t.Fatalf("failed to save candidates: %v", err)
	}

	// Saving the same URL again with a verdict must update, not
	// duplicate.
	pages[0].IsActualApplication = true
	pages[0].Evaluation = "application page (score 3): url pattern"
	if err := cdb.SaveCandidates(ctx, "run-1", pages[:1]); err != nil {
		t.Fatalf("failed to upsert candidate: %v", err)
	}

	got, err := cdb.RecentCandidates(ctx, 10)
	if err != nil {
		t.Fatalf("failed to query candidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates after upsert, got %d", len(got))
	}

	byURL := make(map[string]model.CandidatePage, len(got))
	for _, page := range got {
		byURL[page.URL] = page
	}
	apply, ok := byURL["https://x.edu/apply"]
	if !ok {
		t.Fatal("expected apply page in results")
	}
	if !apply.IsActualApplication {
		t.Error("expected verdict persisted on upsert")
	}
	if len(apply.Reasons) != 1 || apply.Reasons[0] != "url pattern: /apply/?$" {
		t.Errorf("expected reasons round-tripped, got %v", apply.Reasons)
	}

	if err := cdb.SaveCandidates(ctx, "run-1", nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

// TestSaveDomainStats tests the per-domain upsert and admission flag.
func TestSaveDomainStats(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	if err := cdb.StartRun(ctx, "run-1", nil); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	stats := model.CrawlStats{
		DomainCounts:     map[string]int{"x.edu": 40, "admissions.x.edu": 12},
		AdmissionDomains: []string{"admissions.x.edu"},
	}
	if err := cdb.SaveDomainStats(ctx, "run-1", stats); err != nil {
		t.Fatalf("failed to save domain stats: %v", err)
	}

	// Second save with updated counts exercises the upsert path.
	stats.DomainCounts["x.edu"] = 55
	if err := cdb.SaveDomainStats(ctx, "run-1", stats); err != nil {
		t.Fatalf("failed to upsert domain stats: %v", err)
	}
}

// TestParseTimestamp tests the DATETIME layouts SQLite produces.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	if got := parseTimestamp("2026-08-28 10:30:00"); got.IsZero() {
		t.Error("expected default DATETIME layout parsed")
	}
	if got := parseTimestamp("2026-08-28T10:30:00Z"); got.IsZero() {
		t.Error("expected RFC3339 layout parsed")
	}
	if got := parseTimestamp(""); !got.IsZero() {
		t.Error("expected zero time for empty input")
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Error("expected zero time for unparseable input")
	}
}

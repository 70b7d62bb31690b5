package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ghoulbites/applycrawl/internal/model"
)

// dbFileName is the single database file shared by all runs, so run
// history and cross-run candidate queries need no joins across files.
const dbFileName = "applycrawl.db"

// CrawlDB stores crawl runs, candidate pages, and per-domain counters
// in SQLite.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the database under dbDir and ensures the
// schema exists. WAL mode is enabled so the evaluator's reads do not
// block the crawl's writes.
func Open(dbDir string) (*CrawlDB, error) {
	if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dbPath := filepath.Join(dbDir, dbFileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer; a single pooled connection avoids
	// SQLITE_BUSY churn under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		targets TEXT NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		visited INTEGER DEFAULT 0,
		queued INTEGER DEFAULT 0,
		candidates INTEGER DEFAULT 0
	);

	-- Candidate application pages discovered during runs
	CREATE TABLE IF NOT EXISTS candidate_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		target_name TEXT,
		reasons TEXT,
		depth INTEGER,
		is_application INTEGER DEFAULT 0,
		evaluation TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_run ON candidate_pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_candidates_target ON candidate_pages(target_name);

	-- Per-domain visit counters per run
	CREATE TABLE IF NOT EXISTS domain_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		visits INTEGER NOT NULL,
		is_admission INTEGER DEFAULT 0,
		UNIQUE(run_id, domain)
	);

	CREATE INDEX IF NOT EXISTS idx_domain_stats_run ON domain_stats(run_id);
	`
	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun records the beginning of a run.
func (cdb *CrawlDB) StartRun(ctx context.Context, runID string, targets []string) error {
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("serialize targets: %w", err)
	}
	_, err = cdb.db.ExecContext(ctx,
		`INSERT INTO crawl_runs (id, targets) VALUES (?, ?)`,
		runID, string(targetsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert crawl run: %w", err)
	}
	return nil
}

// EndRun records the run's final counters and end time.
func (cdb *CrawlDB) EndRun(ctx context.Context, runID string, stats model.CrawlStats) error {
	_, err := cdb.db.ExecContext(ctx,
		`UPDATE crawl_runs
		 SET ended_at = CURRENT_TIMESTAMP, visited = ?, queued = ?, candidates = ?
		 WHERE id = ?`,
		stats.Visited, stats.Queued, stats.Candidates, runID,
	)
	if err != nil {
		return fmt.Errorf("update crawl run: %w", err)
	}
	return nil
}

// SaveCandidates upserts a batch of candidate pages for the run. The
// batch is written in one transaction so a partial save never leaves
// half a checkpoint behind.
func (cdb *CrawlDB) SaveCandidates(ctx context.Context, runID string, pages []model.CandidatePage) error {
	if len(pages) == 0 {
		return nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO candidate_pages (run_id, url, title, target_name, reasons, depth, is_application, evaluation)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		title = excluded.title,
		reasons = excluded.reasons,
		is_application = excluded.is_application,
		evaluation = excluded.evaluation`)
	if err != nil {
		return fmt.Errorf("prepare candidate insert: %w", err)
	}
	defer stmt.Close()

	for _, page := range pages {
		reasonsJSON, err := json.Marshal(page.Reasons)
		if err != nil {
			return fmt.Errorf("serialize reasons: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, page.URL, page.Title, page.TargetName,
			string(reasonsJSON), page.Depth, boolToInt(page.IsActualApplication), page.Evaluation,
		); err != nil {
			return fmt.Errorf("insert candidate %s: %w", page.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candidates: %w", err)
	}
	return nil
}

// SaveDomainStats upserts the run's per-domain visit counters.
func (cdb *CrawlDB) SaveDomainStats(ctx context.Context, runID string, stats model.CrawlStats) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	admission := make(map[string]bool, len(stats.AdmissionDomains))
	for _, d := range stats.AdmissionDomains {
		admission[d] = true
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO domain_stats (run_id, domain, visits, is_admission)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(run_id, domain) DO UPDATE SET
		visits = excluded.visits,
		is_admission = excluded.is_admission`)
	if err != nil {
		return fmt.Errorf("prepare domain stats insert: %w", err)
	}
	defer stmt.Close()

	for domain, visits := range stats.DomainCounts {
		if _, err := stmt.ExecContext(ctx, runID, domain, visits, boolToInt(admission[domain])); err != nil {
			return fmt.Errorf("insert domain stats %s: %w", domain, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit domain stats: %w", err)
	}
	return nil
}

// RecentCandidates returns up to limit candidate pages across all
// runs, newest first.
func (cdb *CrawlDB) RecentCandidates(ctx context.Context, limit int) ([]model.CandidatePage, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, title, target_name, reasons, depth, is_application, evaluation
	FROM candidate_pages
	ORDER BY timestamp DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var pages []model.CandidatePage
	for rows.Next() {
		var page model.CandidatePage
		var reasonsJSON string
		var isApplication int
		if err := rows.Scan(&page.URL, &page.Title, &page.TargetName, &reasonsJSON, &page.Depth, &isApplication, &page.Evaluation); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if err := json.Unmarshal([]byte(reasonsJSON), &page.Reasons); err != nil {
			page.Reasons = nil
		}
		page.IsActualApplication = isApplication != 0
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID         string
	Targets    []string
	StartedAt  time.Time
	EndedAt    time.Time
	Visited    int
	Queued     int
	Candidates int
}

// RunSummaries returns up to limit runs, newest first.
func (cdb *CrawlDB) RunSummaries(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, targets, started_at, COALESCE(ended_at, ''), visited, queued, candidates
	FROM crawl_runs
	ORDER BY started_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		var targetsJSON, started, ended string
		if err := rows.Scan(&s.ID, &targetsJSON, &started, &ended, &s.Visited, &s.Queued, &s.Candidates); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(targetsJSON), &s.Targets); err != nil {
			s.Targets = nil
		}
		s.StartedAt = parseTimestamp(started)
		s.EndedAt = parseTimestamp(ended)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// parseTimestamp handles the formats SQLite emits for DATETIME
// columns. An unparseable value yields the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghoulbites/applycrawl/internal/analyzer"
	"github.com/ghoulbites/applycrawl/internal/checkpoint"
	"github.com/ghoulbites/applycrawl/internal/config"
	"github.com/ghoulbites/applycrawl/internal/crawler"
	"github.com/ghoulbites/applycrawl/internal/database"
	applog "github.com/ghoulbites/applycrawl/internal/log"
	"github.com/ghoulbites/applycrawl/internal/model"
	"github.com/ghoulbites/applycrawl/internal/report"
)

// admissionSeedPriority slots configured admission subdomains just
// behind the critical band so they drain before ordinary pages.
const admissionSeedPriority = 0.5

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [base-url...]",
		Short: "Crawl university sites for application pages",
		Long: `Crawl fetches each target site, follows admission-related links with
priority, and reports pages where an applicant can actually apply.

Targets come from positional arguments (base URLs) or the config file.

Examples:
  # Crawl one university
  applycrawl crawl https://www.example.edu

  # Crawl targets listed in a config file
  applycrawl crawl -c targets.yaml

  # Limit depth and workers, emit a JSON report to a file
  applycrawl crawl -d 4 -w 6 --json -o report.json https://www.example.edu

Configuration file (.applycrawl) example:
  targets:
    - name: Example University
      base_url: https://www.example.edu
      domain: example.edu
  admission_seeds:
    example.edu: [admissions.example.edu, apply.example.edu]`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .applycrawl in current dir or XDG config dir)")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl depth per seed")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetch workers")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("delay", config.DefaultRequestDelay,
		"Base politeness delay between requests to the same domain")
	cmd.Flags().Int("max-urls", config.DefaultMaxTotalURLs,
		"Global URL limit for the run")
	cmd.Flags().Int("max-urls-per-domain", config.DefaultMaxURLsPerDomain,
		"URL limit per domain")
	cmd.Flags().Bool("respect-robots", false,
		"Check robots.txt before fetching")
	cmd.Flags().Bool("check-domains", false,
		"Verify discovered domains resolve before queueing them")
	cmd.Flags().Bool("no-db", false,
		"Skip saving results to the SQLite run store")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	slog.SetDefault(setupLogger(cfg.Verbose))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	return runCrawl(ctx, cancel, cfg)
}

// buildConfig creates a Config from cobra flags, the config file, and
// positional target URLs.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.MaxDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxAdmissionDepth < cfg.MaxDepth*2 {
		cfg.MaxAdmissionDepth = cfg.MaxDepth * 2
	}
	if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.MaxTotalURLs, err = cmd.Flags().GetInt("max-urls"); err != nil {
		return nil, err
	}
	if cfg.MaxURLsPerDomain, err = cmd.Flags().GetInt("max-urls-per-domain"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = cmd.Flags().GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.CheckDomains, err = cmd.Flags().GetBool("check-domains"); err != nil {
		return nil, err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	if noDB {
		cfg.DBDir = ""
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	configFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath := config.FindConfigFile(configFlag)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if configFlag != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configFlag)
	}

	for _, arg := range args {
		target, err := targetFromURL(arg)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return cfg, nil
}

// targetFromURL derives a TargetSite from a bare base URL: the host is
// the name and the registrable-ish domain is the host without a
// leading www label.
func targetFromURL(raw string) (model.TargetSite, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return model.TargetSite{}, fmt.Errorf("invalid target URL %q", raw)
	}
	domain := strings.ToLower(u.Hostname())
	domain = strings.TrimPrefix(domain, "www.")
	return model.TargetSite{
		Name:    domain,
		BaseURL: u.String(),
		Domain:  domain,
	}, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the structured logger. Attribute values are
// truncated so logged URLs and snippets cannot flood the terminal.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(applog.NewTruncatingHandler(handler, applog.DefaultMaxValueLen))
}

// candidateSink feeds candidates to the checkpoint manager and nudges
// the evaluation loop when a batch becomes ready.
type candidateSink struct {
	manager *checkpoint.Manager
	ready   chan struct{}
}

func (s *candidateSink) AddCandidate(page model.CandidatePage) bool {
	if s.manager.AddCandidate(page) {
		select {
		case s.ready <- struct{}{}:
		default:
		}
		return true
	}
	return false
}

// runCrawl wires the crawl engine and runs it to completion.
func runCrawl(ctx context.Context, cancel context.CancelFunc, cfg *config.Config) error {
	targetNames := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targetNames = append(targetNames, t.Name)
	}
	slog.Info("starting crawl",
		"targets", targetNames,
		"workers", cfg.Workers,
		"max_depth", cfg.MaxDepth,
	)

	var db *database.CrawlDB
	if cfg.DBDir != "" {
		var err error
		db, err = database.Open(cfg.DBDir)
		if err != nil {
			slog.Warn("run store unavailable, continuing without persistence", "error", err)
		} else {
			defer db.Close()
		}
	}

	normalizer, err := crawler.NewNormalizer(cfg.Patterns)
	if err != nil {
		return fmt.Errorf("invalid url patterns: %w", err)
	}
	classifier, err := crawler.NewClassifier(cfg.Patterns)
	if err != nil {
		return fmt.Errorf("invalid priority patterns: %w", err)
	}
	detector, err := analyzer.NewDetector(cfg.Patterns)
	if err != nil {
		return fmt.Errorf("invalid detector patterns: %w", err)
	}

	state := crawler.NewState()
	tracker := crawler.NewRedirectTracker(cfg.MaxRedirects)

	var domainCheck func(string) bool
	if cfg.CheckDomains {
		checker := crawler.NewDomainChecker()
		domainCheck = checker.IsValid
	}

	frontier := crawler.NewFrontier(state, crawler.FrontierOptions{
		MaxQueueSize:     cfg.MaxQueueSize,
		MaxURLsPerDomain: cfg.MaxURLsPerDomain,
		MaxTotalURLs:     cfg.MaxTotalURLs,
		MinInterval:      cfg.RequestDelay,
		DomainCheck:      domainCheck,
	})

	manager, err := checkpoint.NewManager(
		cfg.CheckpointDir, cfg.MinBatchSize, cfg.MaxBatchSize,
		cfg.CheckpointInterval, targetNames, state,
	)
	if err != nil {
		return fmt.Errorf("checkpoint setup: %w", err)
	}
	slog.Info("checkpoint directory created", "dir", manager.Dir(), "run_id", manager.RunID())

	sink := &candidateSink{manager: manager, ready: make(chan struct{}, 1)}

	var robots *crawler.RobotsGate
	if cfg.RespectRobots {
		robots = crawler.NewRobotsGate(&http.Client{Timeout: cfg.RequestTimeout}, cfg.UserAgents[0])
	}

	fetcher, err := crawler.NewFetcher(
		normalizer, classifier, state, frontier, tracker,
		detector.IsApplicationPage, sink, robots, cfg.Patterns,
		crawler.FetcherOptions{
			MaxDepth:          cfg.MaxDepth,
			MaxAdmissionDepth: cfg.MaxAdmissionDepth,
			RequestDelay:      cfg.RequestDelay,
			MaxRequestDelay:   cfg.MaxRequestDelay,
			RequestTimeout:    cfg.RequestTimeout,
			SnippetLimit:      cfg.SnippetLimit,
			MaxBodySize:       cfg.MaxBodySize,
			UserAgents:        cfg.UserAgents,
		},
	)
	if err != nil {
		return fmt.Errorf("fetcher setup: %w", err)
	}

	if db != nil {
		if err := db.StartRun(ctx, manager.RunID(), targetNames); err != nil {
			slog.Warn("failed to record run start", "error", err)
		}
	}

	seedFrontier(cfg, normalizer, frontier)
	if frontier.Empty() {
		return fmt.Errorf("no seed URLs admitted; check target configuration")
	}

	shutdown := crawler.NewShutdownController()
	installSignalHandler(cancel, state, shutdown, cfg.WatchdogCeiling)

	evaluator := analyzer.NewHeuristicEvaluator(detector)
	evalDone := make(chan struct{})
	go evaluationLoop(ctx, manager, evaluator, sink.ready, db, state, cfg.CheckpointInterval, evalDone)

	monitor := crawler.NewMonitor(state, frontier, shutdown, cfg.MonitorInterval, cfg.MaxTotalURLs)
	go monitor.Run(ctx)

	// Task timeout covers the politeness sleep plus the request itself.
	taskTimeout := cfg.RequestTimeout + cfg.MaxRequestDelay + 5*time.Second
	pool := crawler.NewPool(cfg.Workers, frontier, fetcher, state, shutdown, taskTimeout)
	if err := pool.Run(ctx); err != nil {
		slog.Warn("worker pool exited with error", "error", err)
	}

	state.Stop()
	if !shutdown.WaitForCompletion(ctx, cfg.ShutdownGrace) {
		slog.Warn("tasks still in flight after grace period", "active", shutdown.ActiveTasks())
	}
	cancel()
	<-evalDone

	// Anything still pending gets evaluated before reporting.
	for {
		batch := manager.DrainBatch()
		if len(batch) == 0 {
			break
		}
		evaluated := evaluator.EvaluateBatch(context.Background(), batch)
		manager.RecordEvaluated(evaluated)
		saveBatch(db, manager.RunID(), evaluated)
	}

	stats := state.Stats()
	manager.SnapshotCrawlState(stats)
	if db != nil {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dbCancel()
		if err := db.SaveDomainStats(dbCtx, manager.RunID(), stats); err != nil {
			slog.Warn("failed to save domain stats", "error", err)
		}
		if err := db.EndRun(dbCtx, manager.RunID(), stats); err != nil {
			slog.Warn("failed to record run end", "error", err)
		}
	}

	crawlReport := &model.CrawlReport{
		RunID:       manager.RunID(),
		GeneratedAt: time.Now().UTC(),
		Targets:     targetNames,
		Stats:       stats,
		TopDomains:  state.TopDomains(0),
		Candidates:  state.Candidates(),
		Evaluated:   manager.Evaluated(),
	}
	return outputReport(cfg, crawlReport)
}

// seedFrontier queues each target's base URL at top priority plus any
// configured admission subdomains just behind it.
func seedFrontier(cfg *config.Config, normalizer *crawler.Normalizer, frontier *crawler.Frontier) {
	for _, target := range cfg.Targets {
		seed := normalizer.Normalize(target.BaseURL)
		if !frontier.Put(model.CrawlTask{
			Priority: crawler.PriorityCritical,
			URL:      seed,
			Depth:    0,
			Target:   target,
		}) {
			slog.Warn("seed rejected", "url", seed)
		}

		for _, sub := range cfg.AdmissionSeeds[target.Domain] {
			seedURL := normalizer.Normalize("https://" + sub)
			frontier.Put(model.CrawlTask{
				Priority: admissionSeedPriority,
				URL:      seedURL,
				Depth:    0,
				Target:   target,
			})
		}
	}
}

// installSignalHandler wires interrupt/terminate to a cooperative stop
// plus a watchdog that force-exits if graceful shutdown stalls.
func installSignalHandler(cancel context.CancelFunc, state *crawler.State, shutdown *crawler.ShutdownController, ceiling time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal, stopping crawl...")
		shutdown.RequestShutdown()
		state.Stop()
		cancel()

		go func() {
			time.Sleep(ceiling)
			fmt.Fprintln(os.Stderr, "shutdown exceeded ceiling, terminating")
			os.Exit(1)
		}()
	}()
}

// evaluationLoop drains ready batches, evaluates them, and persists
// the results. It also snapshots crawl state on the checkpoint
// interval.
func evaluationLoop(
	ctx context.Context,
	manager *checkpoint.Manager,
	evaluator analyzer.Evaluator,
	ready <-chan struct{},
	db *database.CrawlDB,
	state *crawler.State,
	interval time.Duration,
	done chan<- struct{},
) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ready:
		case <-ticker.C:
			manager.SnapshotCrawlState(state.Stats())
			if manager.PendingCount() == 0 {
				continue
			}
		}

		batch := manager.DrainBatch()
		if len(batch) == 0 {
			continue
		}
		evaluated := evaluator.EvaluateBatch(ctx, batch)
		manager.RecordEvaluated(evaluated)
		saveBatch(db, manager.RunID(), evaluated)
	}
}

func saveBatch(db *database.CrawlDB, runID string, batch []model.CandidatePage) {
	if db == nil || len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.SaveCandidates(ctx, runID, batch); err != nil {
		slog.Warn("failed to save candidates", "error", err)
	}
}

// outputReport renders the final report per the configured format and
// destination. Default is a Markdown summary on stdout.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	out := os.Stdout
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create report directory: %w", err)
			}
		}
		f, err := os.Create(cfg.ReportFile)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	default:
		w = report.NewMarkdownWriter(out)
	}
	if _, err := w.Write(crawlReport); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

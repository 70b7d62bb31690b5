package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/ghoulbites/applycrawl/internal/model"
)

// Default configuration values. The crawl limits mirror what proved
// workable against real university sites: deep enough to reach
// application forms, bounded enough to survive calendar and archive
// traps.
const (
	// DefaultMaxDepth is the regular depth budget per seed. University
	// application pages sit shallow; six levels reaches them without
	// draining the budget on news archives.
	DefaultMaxDepth = 6

	// DefaultMaxAdmissionDepth is the extended budget applied once a
	// crawl branch enters an admission-related domain.
	DefaultMaxAdmissionDepth = 12

	// DefaultWorkers is the number of concurrent fetch workers.
	DefaultWorkers = 12

	// DefaultMaxURLsPerDomain caps how many URLs a single domain may
	// contribute, preventing one large site from starving the rest.
	DefaultMaxURLsPerDomain = 500

	// DefaultMaxTotalURLs caps the whole run.
	DefaultMaxTotalURLs = 100000

	// DefaultMaxQueueSize bounds frontier memory.
	DefaultMaxQueueSize = 10000

	// DefaultRequestTimeout is the per-request HTTP timeout.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultRequestDelay is the base politeness delay between requests
	// to the same domain. Per-domain delays escalate from this value
	// under load and after timeouts.
	DefaultRequestDelay = 1 * time.Second

	// DefaultMaxRequestDelay caps the escalated per-domain delay.
	DefaultMaxRequestDelay = 5 * time.Second

	// DefaultMaxRedirects is the longest redirect chain followed before
	// a task is abandoned.
	DefaultMaxRedirects = 5

	// DefaultCheckpointInterval is the time component of the checkpoint
	// trigger: a pending batch older than this is flushed even if it
	// has not reached the maximum batch size.
	DefaultCheckpointInterval = 60 * time.Second

	// DefaultMinBatchSize and DefaultMaxBatchSize bound the candidate
	// batches handed to the evaluator.
	DefaultMinBatchSize = 10
	DefaultMaxBatchSize = 30

	// DefaultSnippetLimit is the number of HTML bytes kept on a
	// candidate page for downstream classification.
	DefaultSnippetLimit = 5000

	// DefaultMaxBodySize limits response bodies to keep one hostile
	// page from exhausting memory.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultShutdownGrace is how long graceful shutdown waits for
	// in-flight tasks before escalating.
	DefaultShutdownGrace = 30 * time.Second

	// DefaultWatchdogCeiling is the hard limit on total shutdown time;
	// past it the process is terminated.
	DefaultWatchdogCeiling = 60 * time.Second

	// DefaultMonitorInterval is the progress-report period.
	DefaultMonitorInterval = 5 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "ApplyCrawl/1.0 (+https://github.com/ghoulbites/applycrawl)"

	// AppName is used for XDG directory paths.
	AppName = "applycrawl"
)

// Config holds all options for a crawl run. It is populated from CLI
// flags and the YAML config file, validated once, and then passed by
// dependency injection; there is no global configuration state.
type Config struct {
	// Targets are the university sites to seed.
	Targets []model.TargetSite

	// AdmissionSeeds maps a target domain to known admission subdomains
	// that are seeded alongside the base URL.
	AdmissionSeeds map[string][]string

	// Patterns are the URL classification tables injected into the
	// normalizer, validator, and priority classifier.
	Patterns *Patterns

	// UserAgents are rotated across requests. The first entry is the
	// canonical identity used for robots.txt checks.
	UserAgents []string

	// MaxDepth is the regular per-seed depth budget.
	MaxDepth int

	// MaxAdmissionDepth is the extended budget for admission domains.
	MaxAdmissionDepth int

	// Workers is the size of the fetch worker pool.
	Workers int

	// MaxURLsPerDomain, MaxTotalURLs, and MaxQueueSize are the
	// admission-control caps enforced by the frontier.
	MaxURLsPerDomain int
	MaxTotalURLs     int
	MaxQueueSize     int

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// RequestDelay is the base per-domain politeness delay;
	// MaxRequestDelay caps its adaptive escalation.
	RequestDelay    time.Duration
	MaxRequestDelay time.Duration

	// MaxRedirects bounds redirect chains.
	MaxRedirects int

	// MaxBodySize limits response body reads, in bytes.
	MaxBodySize int64

	// Checkpoint settings.
	CheckpointInterval time.Duration
	MinBatchSize       int
	MaxBatchSize       int
	SnippetLimit       int
	CheckpointDir      string

	// ShutdownGrace and WatchdogCeiling bound shutdown latency.
	ShutdownGrace   time.Duration
	WatchdogCeiling time.Duration

	// MonitorInterval is the progress-report period.
	MonitorInterval time.Duration

	// RespectRobots enables the optional robots.txt gate.
	RespectRobots bool

	// CheckDomains enables DNS existence checks on discovered domains.
	CheckDomains bool

	// DBDir is the directory for the SQLite run store. Empty disables
	// persistence.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport / MarkdownReport select the final report format;
	// ReportFile redirects it from stdout to a file.
	JSONReport     bool
	MarkdownReport bool
	ReportFile     string
}

// NewConfig returns a Config with all defaults applied. Targets and
// pattern tables still need to be supplied before Validate passes.
func NewConfig() *Config {
	return &Config{
		AdmissionSeeds:     make(map[string][]string),
		Patterns:           DefaultPatterns(),
		UserAgents:         []string{DefaultUserAgent},
		MaxDepth:           DefaultMaxDepth,
		MaxAdmissionDepth:  DefaultMaxAdmissionDepth,
		Workers:            DefaultWorkers,
		MaxURLsPerDomain:   DefaultMaxURLsPerDomain,
		MaxTotalURLs:       DefaultMaxTotalURLs,
		MaxQueueSize:       DefaultMaxQueueSize,
		RequestTimeout:     DefaultRequestTimeout,
		RequestDelay:       DefaultRequestDelay,
		MaxRequestDelay:    DefaultMaxRequestDelay,
		MaxRedirects:       DefaultMaxRedirects,
		MaxBodySize:        DefaultMaxBodySize,
		CheckpointInterval: DefaultCheckpointInterval,
		MinBatchSize:       DefaultMinBatchSize,
		MaxBatchSize:       DefaultMaxBatchSize,
		SnippetLimit:       DefaultSnippetLimit,
		CheckpointDir:      filepath.Join(XDGDataDir(), "checkpoints"),
		ShutdownGrace:      DefaultShutdownGrace,
		WatchdogCeiling:    DefaultWatchdogCeiling,
		MonitorInterval:    DefaultMonitorInterval,
		DBDir:              XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for applycrawl.
// On Linux: ~/.local/share/applycrawl.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for applycrawl.
// On Linux: ~/.config/applycrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem
// found. It is called once after flag and file parsing, before any
// crawling begins.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	for _, t := range c.Targets {
		if t.Name == "" || t.BaseURL == "" || t.Domain == "" {
			return ErrTargetIncomplete
		}
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxDepth < 0 || c.MaxAdmissionDepth < c.MaxDepth {
		return ErrInvalidDepth
	}
	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}
	if c.MinBatchSize <= 0 || c.MaxBatchSize < c.MinBatchSize {
		return ErrInvalidBatch
	}
	if c.MaxTotalURLs <= 0 || c.MaxQueueSize <= 0 || c.MaxURLsPerDomain <= 0 {
		return ErrInvalidLimits
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

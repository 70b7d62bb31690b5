package model

// TargetSite describes one university site the crawl is seeded with.
// Instances are loaded once from configuration and treated as
// immutable; many tasks share the same TargetSite value.
type TargetSite struct {
	// Name is the human-readable university name (e.g., "MIT").
	// Multi-word names also feed the related-domain initialism check.
	Name string `yaml:"name" json:"name"`

	// BaseURL is the seed URL for the crawl (e.g., "https://www.mit.edu").
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Domain is the registrable domain used for on-target checks
	// (e.g., "mit.edu"). Subdomains of Domain are always on-target.
	Domain string `yaml:"domain" json:"domain"`
}

// CrawlTask is one unit of work for the frontier and worker pool.
// Tasks are ordered by Priority ascending; ties keep insertion order.
// A task is created by seeding, link discovery, or critical-link
// rediscovery, and consumed exactly once by a worker.
type CrawlTask struct {
	// Priority orders the frontier; lower values are more urgent.
	// Fractional values preserve pattern-list ordering within a band.
	Priority float64

	// URL is the normalized URL to fetch.
	URL string

	// Depth is the remaining depth budget. Positive values count down
	// toward zero; negative values track the extended admission-domain
	// budget (see Fetcher).
	Depth int

	// Target is the site this task belongs to.
	Target TargetSite
}

// CandidatePage is a fetched page that passed the relevance test.
// A CandidatePage is immutable once created; evaluation produces an
// updated copy, never a mutation of the record buffered by the
// checkpoint manager.
type CandidatePage struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	TargetName  string   `json:"target_name"`
	Reasons     []string `json:"reasons"`
	Depth       int      `json:"depth"`
	HTMLSnippet string   `json:"html_snippet,omitempty"`

	// IsActualApplication and Evaluation are set by the evaluator.
	IsActualApplication bool   `json:"is_actual_application"`
	Evaluation          string `json:"evaluation,omitempty"`
}

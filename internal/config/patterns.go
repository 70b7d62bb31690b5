package config

// Patterns holds the URL classification tables consumed by the
// normalizer, the admissibility validator, and the priority
// classifier. The tables are data, loaded from the YAML config file
// when present, so rule changes do not require a rebuild. All regex
// entries use Go syntax and are compiled once at crawler construction.
type Patterns struct {
	// VeryHighPriority are path regexes for explicit apply/portal/enroll
	// endpoints; matches land in the most urgent priority band.
	VeryHighPriority []string `yaml:"very_high_priority"`

	// HighPriority are literal path fragments checked in order; list
	// position breaks ties inside the band.
	HighPriority []string `yaml:"high_priority"`

	// ApplicationKeywords are generic application terms matched against
	// paths, titles, and meta descriptions.
	ApplicationKeywords []string `yaml:"application_keywords"`

	// CriticalLink are href regexes harvested from admission-domain
	// pages and queued at top priority regardless of depth.
	CriticalLink []string `yaml:"critical_link"`

	// RelatedSubdomain are regexes that mark a candidate domain as
	// university-related (apply., admissions., undergrad., ...).
	RelatedSubdomain []string `yaml:"related_subdomain"`

	// ExcludedPath are path regexes that make a URL inadmissible.
	ExcludedPath []string `yaml:"excluded_path"`

	// ExcludedURL are full-URL regexes (external platforms, archives,
	// social media) that make a URL inadmissible.
	ExcludedURL []string `yaml:"excluded_url"`

	// Suspicious are path regexes for common crawler traps.
	Suspicious []string `yaml:"suspicious"`

	// ExcludedExtensions are file extensions never fetched.
	ExcludedExtensions []string `yaml:"excluded_extensions"`

	// TrackingParams are query keys stripped during normalization.
	TrackingParams []string `yaml:"tracking_params"`

	// HighValueKeywords exempt deep paths from trap truncation.
	HighValueKeywords []string `yaml:"high_value_keywords"`
}

// DefaultPatterns returns the built-in rule tables. They are the
// starting point for every run and are replaced wholesale by any
// tables present in the config file.
func DefaultPatterns() *Patterns {
	return &Patterns{
		VeryHighPriority: []string{
			`/apply/?$`,
			`/application/?$`,
			`/apply-now/?$`,
			`/admissions?/?$`,
			`/portal`,
			`/prospective(-students?)?/?$`,
			`/enroll(-now|ment)?/?$`,
			`/register(-now)?/?$`,
		},
		HighPriority: []string{
			"/apply/first-year",
			"/apply/transfer",
			"/apply/freshman",
			"/apply/undergraduate",
			"/apply/online",
			"/admission/apply",
			"/admission/application",
			"/admission/first-year",
			"/admission/undergraduate",
			"/admissions/apply",
			"/apply",
			"/admission",
			"/admissions",
			"/undergraduate",
		},
		ApplicationKeywords: []string{
			"apply", "application", "admission", "admissions",
			"undergraduate", "freshman", "enroll", "register",
			"portal", "submit", "first-year", "transfer",
			"applicant", "prospective",
		},
		CriticalLink: []string{
			`apply.*first-year`,
			`apply.*freshman`,
			`apply.*undergraduate`,
			`apply.*transfer`,
			`admission.*apply`,
			`admission.*first-year`,
			`admission.*freshman`,
			`portal.*applicant`,
			`apply-now`,
		},
		RelatedSubdomain: []string{
			`apply\.`,
			`admission[s]?\.`,
			`undergrad\.`,
			`student\.`,
			`portal\.`,
			`applicant\.`,
			`freshman\.`,
			`myapp\.`,
			`commonapp\.`,
		},
		ExcludedPath: []string{
			`/news/`, `/events/`, `/calendar/`, `/people/`,
			`/profiles/`, `/faculty/`, `/staff/`, `/directory/`,
			`/search`, `/\d{4}/`, `/tag/`, `/category/`,
			`/archive/`, `/page/\d+`, `/feed/`, `/rss/`,
			`/login`, `/accounts/`, `/alumni/`, `/giving/`,
			`/donate/`, `/covid`, `/research/`, `/athletics/`,
			`/sports/`, `/privacy`, `/terms/`, `/campus-map/`,
		},
		ExcludedURL: []string{
			`https?://.*\.sharepoint\.com/`,
			`https?://docs\.google\.com/`,
			`https?://login\.microsoftonline\.com/`,
			`https?://accounts\.google\.com/`,
			`https?://web\.archive\.org/`,
			`https?://archive\.`,
			`https?://.*\.webcache\.googleusercontent\.com/`,
			`https?://(www\.)?(facebook|twitter|instagram|linkedin|youtube|vimeo)\.com/`,
		},
		Suspicious: []string{
			`/calendar/`, `/page/\d+`, `/p/\d+`,
			`/\d{4}/\d{2}/\d{2}/`, `/tags?/`, `/author/`,
			`/users?/`, `/comments?`, `/attachment`,
			`/print/`, `/rss`, `/feed`,
		},
		ExcludedExtensions: []string{
			".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg",
			".css", ".js", ".zip", ".tar", ".gz", ".rar",
			".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
			".mp3", ".mp4", ".avi", ".mov", ".ico", ".tif",
			".tiff", ".webp", ".woff", ".woff2",
		},
		TrackingParams: []string{
			"utm_source", "utm_medium", "utm_campaign", "utm_term",
			"utm_content", "fbclid", "gclid", "ref", "source",
			"mc_cid", "mc_eid", "_ga",
		},
		HighValueKeywords: []string{
			"apply", "admission", "undergraduate", "freshman", "application",
		},
	}
}

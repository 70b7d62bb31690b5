package analyzer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ghoulbites/applycrawl/internal/config"
)

// titleRejections mark error pages that match application keywords by
// accident ("Page not found - Admissions").
var titleRejections = []string{"not found", "404", "error", "access denied", "forbidden"}

// metaDescriptionRe pulls the content of a meta description tag out of
// raw HTML without a full parse; the detector runs on every fetched
// page and must stay cheap.
var metaDescriptionRe = regexp.MustCompile(`(?is)<meta[^>]+name\s*=\s*["']description["'][^>]+content\s*=\s*["']([^"']+)["']`)

// formActionRe extracts form action attributes.
var formActionRe = regexp.MustCompile(`(?is)<form[^>]+action\s*=\s*["']([^"']+)["']`)

// Detector is the pure, CPU-only page relevance test. It is built once
// from the configured pattern tables and is safe for concurrent use.
type Detector struct {
	urlPatterns []*regexp.Regexp
	keywords    []string
}

// NewDetector compiles the pattern tables into a Detector.
func NewDetector(p *config.Patterns) (*Detector, error) {
	compiled := make([]*regexp.Regexp, 0, len(p.VeryHighPriority))
	for _, pattern := range p.VeryHighPriority {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("very_high_priority pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return &Detector{
		urlPatterns: compiled,
		keywords:    p.ApplicationKeywords,
	}, nil
}

// IsApplicationPage reports whether the page looks like an
// undergraduate application page, with the list of reasons that fired.
// Signals, in order: URL path pattern and keyword hits, title
// keywords, meta description keywords, and application-flavored form
// actions. Error-page titles reject the page outright regardless of
// other signals.
func (d *Detector) IsApplicationPage(rawURL, html, title string) (bool, []string) {
	lowerTitle := strings.ToLower(title)
	for _, rejection := range titleRejections {
		if strings.Contains(lowerTitle, rejection) {
			return false, nil
		}
	}

	var reasons []string

	path := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.ToLower(u.Path)
	}
	for _, re := range d.urlPatterns {
		if re.MatchString(path) {
			reasons = append(reasons, "url pattern: "+re.String())
			break
		}
	}
	if hit := firstKeyword(path, d.keywords); hit != "" {
		reasons = append(reasons, "url keyword: "+hit)
	}

	if hit := firstKeyword(lowerTitle, d.keywords); hit != "" {
		reasons = append(reasons, "title keyword: "+hit)
	}

	if m := metaDescriptionRe.FindStringSubmatch(html); m != nil {
		if hit := firstKeyword(strings.ToLower(m[1]), d.keywords); hit != "" {
			reasons = append(reasons, "meta description keyword: "+hit)
		}
	}

	for _, m := range formActionRe.FindAllStringSubmatch(html, -1) {
		action := strings.ToLower(m[1])
		if strings.Contains(action, "apply") || strings.Contains(action, "application") || strings.Contains(action, "admission") {
			reasons = append(reasons, "form action: "+m[1])
			break
		}
	}

	// A lone URL keyword hit fires on half the site (every page under
	// /admissions/); require a second independent signal in that case.
	if len(reasons) == 1 && strings.HasPrefix(reasons[0], "url keyword:") {
		return false, nil
	}
	return len(reasons) > 0, reasons
}

// firstKeyword returns the first keyword contained in s, or "".
func firstKeyword(s string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw
		}
	}
	return ""
}

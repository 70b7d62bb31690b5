package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/ghoulbites/applycrawl/internal/config"
	"golang.org/x/net/idna"
)

const (
	// maxURLLength is the hard cap applied after normalization.
	maxURLLength = 2000

	// maxAdmissiblePathSegments is the deepest path accepted without a
	// high-value keyword.
	maxAdmissiblePathSegments = 8

	// trapPathSegments is the depth past which a path with no
	// high-value keyword is truncated during normalization.
	trapPathSegments = 10

	// truncatedPathSegments is what such a path is truncated to.
	truncatedPathSegments = 5

	// maxSegmentRepeats is how often a single path segment may occur
	// before the URL is treated as a crawler trap.
	maxSegmentRepeats = 2

	// maxQueryLength rejects URLs carrying oversized query strings,
	// typically search results or session tracking.
	maxQueryLength = 100
)

// strippedChars are characters removed from raw URLs before parsing.
// They show up when hrefs leak markup or quoting from the page.
var strippedChars = strings.NewReplacer(
	"<", "", ">", "", `"`, "", "'", "", `\`, "",
	"\n", "", "\r", "", "\t", "",
	"%22", "", "%3C", "", "%3E", "",
)

// Normalizer canonicalizes URLs and decides admissibility. It is built
// once from the configured pattern tables and is safe for concurrent
// use; all methods are pure functions of their input.
type Normalizer struct {
	trackingParams    map[string]bool
	highValueKeywords []string
	excludedExt       []string
	excludedPath      []*regexp.Regexp
	excludedURL       []*regexp.Regexp
	suspicious        []*regexp.Regexp
	relatedSubdomain  []*regexp.Regexp
}

// NewNormalizer compiles the pattern tables into a Normalizer.
// Invalid regex entries are reported rather than silently dropped so a
// bad config file fails at startup, not mid-crawl.
func NewNormalizer(p *config.Patterns) (*Normalizer, error) {
	n := &Normalizer{
		trackingParams:    make(map[string]bool, len(p.TrackingParams)),
		highValueKeywords: p.HighValueKeywords,
		excludedExt:       p.ExcludedExtensions,
	}
	for _, param := range p.TrackingParams {
		n.trackingParams[param] = true
	}

	var err error
	if n.excludedPath, err = compileAll(p.ExcludedPath); err != nil {
		return nil, fmt.Errorf("excluded_path: %w", err)
	}
	if n.excludedURL, err = compileAll(p.ExcludedURL); err != nil {
		return nil, fmt.Errorf("excluded_url: %w", err)
	}
	if n.suspicious, err = compileAll(p.Suspicious); err != nil {
		return nil, fmt.Errorf("suspicious: %w", err)
	}
	if n.relatedSubdomain, err = compileAll(p.RelatedSubdomain); err != nil {
		return nil, fmt.Errorf("related_subdomain: %w", err)
	}
	return n, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Normalize canonicalizes a URL so the visited set and frontier
// deduplicate correctly: fragments are dropped, tracking parameters
// removed, the query re-sorted deterministically, trailing slashes
// stripped, repeated path segments collapsed, suspiciously deep paths
// truncated, the host IDNA-encoded, and the total length capped.
//
// Normalize is a total function: on any parse failure it falls back to
// stripping disallowed characters from the raw string instead of
// failing the caller.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	cleaned := strippedChars.Replace(raw)
	// Scheme-less input would otherwise parse as a bare path.
	if !strings.Contains(cleaned, "://") {
		cleaned = "http://" + cleaned
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return capLength(cleaned)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)

	if u.RawQuery != "" {
		u.RawQuery = n.normalizeQuery(u.RawQuery)
	}

	u.Path = n.normalizePath(u.Path)
	u.RawPath = ""

	if host, err := idna.ToASCII(u.Hostname()); err == nil && host != "" {
		if port := u.Port(); port != "" {
			u.Host = host + ":" + port
		} else {
			u.Host = host
		}
	}
	u.Host = strings.ToLower(u.Host)

	return capLength(u.String())
}

// normalizeQuery drops tracking parameters and rebuilds the query with
// keys and values in sorted order.
func (n *Normalizer) normalizeQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for param := range values {
		if n.trackingParams[param] {
			delete(values, param)
		}
	}
	for _, vs := range values {
		sort.Strings(vs)
	}
	// url.Values.Encode already emits keys in sorted order.
	return values.Encode()
}

// normalizePath collapses consecutive duplicate segments, truncates
// suspiciously deep keyword-free paths, and strips the trailing slash
// for non-root paths.
func (n *Normalizer) normalizePath(path string) string {
	if path == "" || path == "/" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	segments := splitPath(path)
	cleaned := segments[:0]
	for _, seg := range segments {
		if len(cleaned) == 0 || seg != cleaned[len(cleaned)-1] {
			cleaned = append(cleaned, seg)
		}
	}

	if len(cleaned) > trapPathSegments && !n.containsHighValueKeyword(strings.Join(cleaned, "/")) {
		cleaned = cleaned[:truncatedPathSegments]
	}

	if len(cleaned) == 0 {
		return "/"
	}
	return "/" + strings.Join(cleaned, "/")
}

func (n *Normalizer) containsHighValueKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range n.highValueKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsAdmissible reports whether a URL may enter the frontier. It
// rejects non-HTTP schemes, blacklisted extensions, excluded path and
// full-URL patterns, oversized queries, suspicious trap patterns,
// keyword-free deep paths, and paths with over-repeated segments.
func (n *Normalizer) IsAdmissible(raw string) bool {
	if raw == "" {
		return false
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	full := strings.ToLower(raw)

	for _, ext := range n.excludedExt {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	for _, re := range n.excludedPath {
		if re.MatchString(path) {
			return false
		}
	}
	for _, re := range n.excludedURL {
		if re.MatchString(full) {
			return false
		}
	}
	if len(u.RawQuery) > maxQueryLength {
		return false
	}
	for _, re := range n.suspicious {
		if re.MatchString(path) {
			return false
		}
	}

	segments := splitPath(path)
	if len(segments) > maxAdmissiblePathSegments && !n.containsHighValueKeyword(path) {
		return false
	}
	counts := make(map[string]int, len(segments))
	for _, seg := range segments {
		counts[seg]++
		if counts[seg] > maxSegmentRepeats {
			return false
		}
	}
	return true
}

// IsRelatedDomain reports whether candidateDomain may extend the crawl
// of a target. On-target cases: the target domain is contained in the
// candidate; an admissions-flavored subdomain whose root matches the
// target's registrable domain; a known related-subdomain pattern; the
// target's name, an initialism derived from it, or a significant name
// part appearing in the candidate domain.
func (n *Normalizer) IsRelatedDomain(targetDomain, candidateDomain, targetName string) bool {
	candidate := strings.ToLower(candidateDomain)
	if candidate == "" {
		return false
	}
	if strings.Contains(candidate, strings.ToLower(targetDomain)) {
		return true
	}

	// admissions.stanford.edu matches when "stanford" (the label left
	// of the public suffix) appears in the candidate.
	if containsAny(candidate, "admission", "apply", "undergrad", "applicant") {
		if root := registrableLabel(targetDomain); root != "" && strings.Contains(candidate, root) {
			return true
		}
	}

	for _, re := range n.relatedSubdomain {
		if re.MatchString(candidate) {
			return true
		}
	}

	nameParts := strings.Fields(strings.ToLower(targetName))
	if len(nameParts) > 1 {
		var initialism strings.Builder
		for _, part := range nameParts {
			if len(part) > 1 {
				initialism.WriteByte(part[0])
			}
		}
		if initialism.Len() >= 2 && strings.Contains(candidate, initialism.String()) {
			return true
		}
	}
	for _, part := range nameParts {
		if len(part) > 3 && strings.Contains(candidate, part) {
			return true
		}
	}
	return false
}

// registrableLabel returns the label left of the registrable suffix,
// e.g. "stanford" for "stanford.edu" or "cam" for "cam.ac.uk".
func registrableLabel(domain string) string {
	labels := strings.Split(strings.ToLower(domain), ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[0]
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func capLength(s string) string {
	if len(s) > maxURLLength {
		return s[:maxURLLength]
	}
	return s
}

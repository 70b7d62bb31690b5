package model

import "time"

// CrawlReport is the final artifact of a run: counters, domain
// statistics, and the raw and evaluated candidate lists. It is the
// only data the reporting layer consumes.
type CrawlReport struct {
	// RunID identifies the run that produced this report.
	RunID string `json:"run_id"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Targets are the names of the crawled target sites.
	Targets []string `json:"targets"`

	// Stats is the final counter snapshot.
	Stats CrawlStats `json:"stats"`

	// TopDomains are the most-visited domains, ordered by count.
	TopDomains []DomainCount `json:"top_domains"`

	// Candidates are all raw candidate pages the crawl registered.
	Candidates []CandidatePage `json:"candidates"`

	// Evaluated are the candidates after batch evaluation.
	Evaluated []CandidatePage `json:"evaluated"`
}

// ApplicationPages returns the evaluated candidates confirmed as
// application pages, grouped implicitly by their original order.
func (r *CrawlReport) ApplicationPages() []CandidatePage {
	var out []CandidatePage
	for _, page := range r.Evaluated {
		if page.IsActualApplication {
			out = append(out, page)
		}
	}
	return out
}

// PagesForTarget returns the confirmed application pages for one
// target site.
func (r *CrawlReport) PagesForTarget(name string) []CandidatePage {
	var out []CandidatePage
	for _, page := range r.ApplicationPages() {
		if page.TargetName == name {
			out = append(out, page)
		}
	}
	return out
}

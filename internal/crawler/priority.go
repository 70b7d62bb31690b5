package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ghoulbites/applycrawl/internal/config"
	"github.com/ghoulbites/applycrawl/internal/model"
)

// Priority bands, lower is more urgent. Fractional increments inside
// the high-priority band preserve pattern-list ordering.
const (
	// PriorityCritical is assigned to explicit apply/portal/enroll
	// endpoints and harvested critical application links. Tasks at or
	// below CriticalThreshold bypass frontier admission caps.
	PriorityCritical = 0.0

	// CriticalThreshold separates critical tasks from regular ones.
	CriticalThreshold = 1.0

	priorityAdmissionWithAppPath = 1.0
	priorityAdmissionSubdomain   = 2.0
	priorityHighPatternBase      = 3.0
	priorityKeyword              = 5.0
	priorityDefaultBase          = 10.0
)

// admissionDomainTerms mark a host as admissions-flavored.
var admissionDomainTerms = []string{"admission", "apply", "undergrad", "freshman"}

// applicationPathTerms pair with an admissions-flavored host to form
// the second-most-urgent band.
var applicationPathTerms = []string{"/apply", "/admission", "/application", "/portal", "/first-year"}

// Classifier maps a URL and its target site to a frontier priority.
// It is built once from the configured pattern tables and is safe for
// concurrent use.
type Classifier struct {
	veryHigh     []*regexp.Regexp
	highPriority []string
	keywords     []string
}

// NewClassifier compiles the priority tables into a Classifier.
func NewClassifier(p *config.Patterns) (*Classifier, error) {
	veryHigh, err := compileAll(p.VeryHighPriority)
	if err != nil {
		return nil, fmt.Errorf("very_high_priority: %w", err)
	}
	return &Classifier{
		veryHigh:     veryHigh,
		highPriority: p.HighPriority,
		keywords:     p.ApplicationKeywords,
	}, nil
}

// Priority returns the frontier priority for a URL; lower values are
// more urgent. Bands, most to least urgent: explicit apply/portal
// endpoints; admissions subdomain plus application path; admissions
// subdomain alone; high-priority path patterns in list order; generic
// application keywords; a default that grows with path depth so
// shallow pages drain first. Ties are broken by insertion order in
// the frontier.
func (c *Classifier) Priority(rawURL string, target model.TargetSite) float64 {
	u, err := url.Parse(rawURL)
	if err != nil {
		return priorityDefaultBase
	}
	domain := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)

	for _, re := range c.veryHigh {
		if re.MatchString(path) {
			return PriorityCritical
		}
	}

	admissionHost := containsAny(domain, admissionDomainTerms...)
	if admissionHost && containsAny(path, applicationPathTerms...) {
		return priorityAdmissionWithAppPath
	}
	if admissionHost {
		return priorityAdmissionSubdomain
	}

	for i, pattern := range c.highPriority {
		if strings.Contains(path, pattern) {
			return priorityHighPatternBase + float64(i)*0.1
		}
	}

	if containsAny(path, c.keywords...) {
		return priorityKeyword
	}

	return priorityDefaultBase + float64(len(splitPath(path)))
}

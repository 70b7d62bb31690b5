package crawler

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// domainFailureLimit is how many resolution failures a domain may
// accumulate before it is blacklisted for the rest of the run.
const domainFailureLimit = 3

// domainLookupTimeout bounds each DNS lookup so a wedged resolver
// cannot stall admission.
const domainLookupTimeout = 3 * time.Second

// DomainChecker verifies that hostnames resolve before their URLs are
// admitted to the frontier. Results are cached per run and domains that
// fail repeatedly are blacklisted, so link farms full of dead hosts
// cost at most a handful of lookups each.
type DomainChecker struct {
	mu        sync.Mutex
	valid     map[string]bool
	failures  map[string]int
	blacklist map[string]struct{}

	resolver *net.Resolver
}

// NewDomainChecker returns a checker using the default resolver.
func NewDomainChecker() *DomainChecker {
	return &DomainChecker{
		valid:     make(map[string]bool),
		failures:  make(map[string]int),
		blacklist: make(map[string]struct{}),
		resolver:  net.DefaultResolver,
	}
}

// IsValid reports whether the domain resolves. Known-good domains and
// the blacklist answer without a lookup; otherwise a bounded lookup
// runs. A domain reaching the failure limit is blacklisted permanently
// for the run.
func (dc *DomainChecker) IsValid(domain string) bool {
	host, _, err := net.SplitHostPort(domain)
	if err != nil {
		host = domain
	}

	dc.mu.Lock()
	if _, banned := dc.blacklist[host]; banned {
		dc.mu.Unlock()
		return false
	}
	if verdict, ok := dc.valid[host]; ok {
		dc.mu.Unlock()
		return verdict
	}
	dc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), domainLookupTimeout)
	defer cancel()
	_, lookupErr := dc.resolver.LookupHost(ctx, host)

	dc.mu.Lock()
	defer dc.mu.Unlock()
	if lookupErr != nil {
		// Only successes are cached: a transient failure gets retried
		// on the next sighting until the limit bans the domain.
		dc.failures[host]++
		if dc.failures[host] >= domainFailureLimit {
			dc.blacklist[host] = struct{}{}
			slog.Debug("domain blacklisted", "domain", host, "failures", dc.failures[host])
		}
		return false
	}
	dc.valid[host] = true
	delete(dc.failures, host)
	return true
}

// Blacklisted reports whether the domain has been banned for the run.
func (dc *DomainChecker) Blacklisted(domain string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, banned := dc.blacklist[domain]
	return banned
}

package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghoulbites/applycrawl/internal/config"
	"github.com/ghoulbites/applycrawl/internal/model"
)

// Politeness escalation thresholds and factors. A domain that has
// absorbed many requests, or that timed out, gets a longer delay.
const (
	heavyUseFetches  = 50
	veryHeavyFetches = 100
	heavyUseFactor   = 2.0
	veryHeavyFactor  = 3.0
	timeoutFactor    = 1.5
)

// Per-page link admission limits. Admission-domain pages and shallow
// pages may contribute more links than deep generic ones.
const (
	admissionShallowLinkLimit = 100
	admissionDeepLinkLimit    = 30
	rootLinkLimit             = 50
	shallowLinkLimit          = 20
	deepLinkLimit             = 10
)

// errRedirectLoop aborts the HTTP client's redirect following when the
// tracker detects a loop or an over-long chain.
var errRedirectLoop = errors.New("redirect loop or chain too long")

// ResultKind classifies the outcome of one fetch task. The worker loop
// switches on it; nothing here is a Go error that propagates upward.
type ResultKind int

const (
	// ResultCompleted means the page was fetched, analyzed, and its
	// links expanded (or depth was exhausted).
	ResultCompleted ResultKind = iota

	// ResultAbortedNetwork covers timeouts, resets, and transport
	// failures. The task is not retried.
	ResultAbortedNetwork

	// ResultAbortedStatus covers non-200 responses.
	ResultAbortedStatus

	// ResultAbortedRedirect covers redirect loops and over-long chains.
	ResultAbortedRedirect

	// ResultSkippedRobots means the optional robots gate denied the URL.
	ResultSkippedRobots

	// ResultAbortedShutdown means the run stopped before the fetch began.
	ResultAbortedShutdown
)

// Result reports what happened to a single task.
type Result struct {
	Kind ResultKind
	URL  string
	Err  error
}

// RelevanceTest decides whether a fetched page is an application
// candidate. It must be pure and CPU-only.
type RelevanceTest func(url, html, title string) (bool, []string)

// CandidateSink receives candidate pages as they are discovered. The
// return value reports whether a pending batch is ready for
// evaluation; the fetcher itself ignores it.
type CandidateSink interface {
	AddCandidate(page model.CandidatePage) bool
}

// FetcherOptions carry the tunables the fetch state machine needs.
type FetcherOptions struct {
	MaxDepth          int
	MaxAdmissionDepth int
	RequestDelay      time.Duration
	MaxRequestDelay   time.Duration
	RequestTimeout    time.Duration
	SnippetLimit      int
	MaxBodySize       int64
	UserAgents        []string
}

// Fetcher runs the per-task state machine: politeness delay, the GET
// with redirect tracking, charset decoding, relevance analysis,
// admission-domain handling with critical-link harvesting, and ranked
// link expansion into the frontier. One Fetcher is shared by all
// workers and is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	normalizer *Normalizer
	classifier *Classifier
	state      *State
	frontier   *Frontier
	tracker    *RedirectTracker
	relevance  RelevanceTest
	sink       CandidateSink
	robots     *RobotsGate

	criticalLink []*regexp.Regexp

	opts    FetcherOptions
	uaIndex atomic.Uint64

	delayMu sync.Mutex
	fetches map[string]int
	delays  map[string]time.Duration
}

// NewFetcher wires the fetch state machine. The robots gate may be
// nil, in which case every URL passes. The HTTP client's redirect
// policy is owned by the fetcher so every hop flows through the
// tracker.
func NewFetcher(
	normalizer *Normalizer,
	classifier *Classifier,
	state *State,
	frontier *Frontier,
	tracker *RedirectTracker,
	relevance RelevanceTest,
	sink CandidateSink,
	robots *RobotsGate,
	patterns *config.Patterns,
	opts FetcherOptions,
) (*Fetcher, error) {
	critical, err := compileAll(patterns.CriticalLink)
	if err != nil {
		return nil, fmt.Errorf("critical_link: %w", err)
	}

	f := &Fetcher{
		normalizer:   normalizer,
		classifier:   classifier,
		state:        state,
		frontier:     frontier,
		tracker:      tracker,
		relevance:    relevance,
		sink:         sink,
		robots:       robots,
		criticalLink: critical,
		opts:         opts,
		fetches:      make(map[string]int),
		delays:       make(map[string]time.Duration),
	}

	f.client = &http.Client{
		Timeout: opts.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			origin := via[0].URL.String()
			if !tracker.AddRedirect(origin, req.URL.String()) {
				return errRedirectLoop
			}
			return nil
		},
	}
	return f, nil
}

// Fetch runs one task through the state machine and reports the
// outcome. All failure modes are folded into the Result; Fetch never
// returns a Go error to the worker.
func (f *Fetcher) Fetch(ctx context.Context, task model.CrawlTask) Result {
	if !f.state.Running() {
		return Result{Kind: ResultAbortedShutdown, URL: task.URL}
	}

	// Continue under the normalized form when it differs from what was
	// queued.
	if normalized := f.normalizer.Normalize(task.URL); normalized != task.URL {
		task.URL = normalized
	}
	domain := domainOf(task.URL)

	if f.robots != nil && !f.robots.Allowed(ctx, task.URL) {
		slog.Debug("denied by robots.txt", "url", task.URL)
		return Result{Kind: ResultSkippedRobots, URL: task.URL}
	}

	if err := f.politenessSleep(ctx, domain); err != nil {
		return Result{Kind: ResultAbortedShutdown, URL: task.URL, Err: err}
	}

	f.tracker.StartTracking(task.URL)

	resp, err := f.get(ctx, task.URL)
	if err != nil {
		if errors.Is(err, errRedirectLoop) {
			slog.Warn("redirect loop", "url", task.URL, "chain", f.tracker.Chain(task.URL))
			return Result{Kind: ResultAbortedRedirect, URL: task.URL, Err: err}
		}
		f.escalateAfterTimeout(domain)
		slog.Debug("fetch failed", "url", task.URL, "error", err)
		return Result{Kind: ResultAbortedNetwork, URL: task.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("non-200 response", "url", task.URL, "status", resp.StatusCode)
		return Result{Kind: ResultAbortedStatus, URL: task.URL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodySize))
	if err != nil {
		f.escalateAfterTimeout(domain)
		return Result{Kind: ResultAbortedNetwork, URL: task.URL, Err: err}
	}

	f.recordFetch(domain)
	f.state.IncrementVisited()
	f.state.IncrementDomain(domain)

	// The response may have landed on a different URL after redirects.
	finalURL := resp.Request.URL.String()
	if finalURL != task.URL {
		f.state.MarkVisited(f.normalizer.Normalize(finalURL))
	}

	html := DecodeBody(body, resp.Header.Get("Content-Type"))

	parser, err := NewParser(finalURL)
	if err != nil {
		return Result{Kind: ResultCompleted, URL: task.URL}
	}
	page, err := parser.Parse(strings.NewReader(html))
	if err != nil {
		slog.Debug("parse failed", "url", task.URL, "error", err)
		return Result{Kind: ResultCompleted, URL: task.URL}
	}

	f.analyze(task, html, page)

	admission := f.admissionDomain(domain)
	if admission {
		f.state.AddAdmissionDomain(domain)
		f.harvestCriticalLinks(task, page.Links)
	}

	f.expandLinks(task, page.Links, admission)

	return Result{Kind: ResultCompleted, URL: task.URL}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return f.client.Do(req)
}

// nextUserAgent rotates through the configured identification headers.
func (f *Fetcher) nextUserAgent() string {
	if len(f.opts.UserAgents) == 0 {
		return config.DefaultUserAgent
	}
	i := f.uaIndex.Add(1)
	return f.opts.UserAgents[int(i)%len(f.opts.UserAgents)]
}

// politenessSleep applies the domain's current escalated delay on top
// of the frontier's dequeue pacing.
func (f *Fetcher) politenessSleep(ctx context.Context, domain string) error {
	delay := f.currentDelay(domain)
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// currentDelay computes the domain's politeness delay: the base delay,
// doubled past heavy use, tripled past very heavy use, and further
// multiplied by any timeout escalation, capped at the configured max.
func (f *Fetcher) currentDelay(domain string) time.Duration {
	f.delayMu.Lock()
	defer f.delayMu.Unlock()

	delay := f.delays[domain]
	if delay == 0 {
		delay = f.opts.RequestDelay
	}
	switch n := f.fetches[domain]; {
	case n > veryHeavyFetches:
		delay = time.Duration(float64(f.opts.RequestDelay) * veryHeavyFactor)
	case n > heavyUseFetches:
		delay = time.Duration(float64(f.opts.RequestDelay) * heavyUseFactor)
	}
	if escalated := f.delays[domain]; escalated > delay {
		delay = escalated
	}
	if delay > f.opts.MaxRequestDelay {
		delay = f.opts.MaxRequestDelay
	}
	return delay
}

func (f *Fetcher) recordFetch(domain string) {
	f.delayMu.Lock()
	defer f.delayMu.Unlock()
	f.fetches[domain]++
}

// escalateAfterTimeout multiplies the domain's delay after a timeout
// or disconnect, capped at the configured max.
func (f *Fetcher) escalateAfterTimeout(domain string) {
	f.delayMu.Lock()
	defer f.delayMu.Unlock()

	delay := f.delays[domain]
	if delay == 0 {
		delay = f.opts.RequestDelay
	}
	delay = time.Duration(float64(delay) * timeoutFactor)
	if delay > f.opts.MaxRequestDelay {
		delay = f.opts.MaxRequestDelay
	}
	f.delays[domain] = delay
}

// analyze runs the relevance test and registers a candidate on a
// positive result.
func (f *Fetcher) analyze(task model.CrawlTask, html string, page *ParseResult) {
	hit, reasons := f.relevance(task.URL, html, page.Title)
	if !hit {
		return
	}

	snippet := html
	if len(snippet) > f.opts.SnippetLimit {
		snippet = snippet[:f.opts.SnippetLimit]
	}
	candidate := model.CandidatePage{
		URL:         task.URL,
		Title:       page.Title,
		TargetName:  task.Target.Name,
		Reasons:     reasons,
		Depth:       effectiveDepth(task.Depth),
		HTMLSnippet: snippet,
	}
	slog.Info("candidate page", "url", task.URL, "title", page.Title, "reasons", reasons)
	f.sink.AddCandidate(candidate)
}

// admissionDomain reports whether a host is admissions-flavored.
func (f *Fetcher) admissionDomain(domain string) bool {
	return containsAny(domain, admissionDomainTerms...)
}

// harvestCriticalLinks queues explicit application links found on an
// admission-domain page at the highest priority with a fresh depth
// budget, skipping links already part of the page's redirect chain.
func (f *Fetcher) harvestCriticalLinks(task model.CrawlTask, links []string) {
	for _, link := range links {
		lower := strings.ToLower(link)
		matched := false
		for _, re := range f.criticalLink {
			if re.MatchString(lower) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		normalized := f.normalizer.Normalize(link)
		if f.tracker.InChain(task.URL, normalized) || f.state.Visited(normalized) {
			continue
		}
		if !f.normalizer.IsAdmissible(normalized) {
			continue
		}

		f.frontier.Put(model.CrawlTask{
			Priority: PriorityCritical,
			URL:      normalized,
			Depth:    0,
			Target:   task.Target,
		})
	}
}

// expandLinks normalizes, filters, ranks, and submits the page's
// outbound links, bounded by the depth budget and the per-page limit.
func (f *Fetcher) expandLinks(task model.CrawlTask, links []string, admission bool) {
	depth, ok := f.childDepth(task.Depth, admission)
	if !ok {
		return
	}

	type ranked struct {
		url      string
		priority float64
	}
	candidates := make([]ranked, 0, len(links))
	seen := make(map[string]struct{}, len(links))

	for _, link := range links {
		normalized := f.normalizer.Normalize(link)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		if !f.normalizer.IsAdmissible(normalized) {
			continue
		}
		if !f.normalizer.IsRelatedDomain(task.Target.Domain, domainOf(normalized), task.Target.Name) {
			continue
		}
		if f.state.Visited(normalized) {
			continue
		}
		candidates = append(candidates, ranked{
			url:      normalized,
			priority: f.classifier.Priority(normalized, task.Target),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority < candidates[j].priority
	})

	limit := linkLimit(effectiveDepth(task.Depth), admission)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	for _, c := range candidates {
		f.frontier.Put(model.CrawlTask{
			Priority: c.priority,
			URL:      c.url,
			Depth:    depth,
			Target:   task.Target,
		})
	}
}

// childDepth computes the depth for links found at the given depth. A
// negative depth marks the admission extension: the normal budget is
// exhausted but the branch runs on an admission domain, which may
// continue to the larger admission limit.
func (f *Fetcher) childDepth(depth int, admission bool) (int, bool) {
	next := effectiveDepth(depth) + 1
	if next <= f.opts.MaxDepth {
		return next, true
	}
	if admission && next <= f.opts.MaxAdmissionDepth {
		return -next, true
	}
	return 0, false
}

// effectiveDepth maps the negative-depth extension convention back to
// a plain depth.
func effectiveDepth(depth int) int {
	if depth < 0 {
		return -depth
	}
	return depth
}

// linkLimit is the per-page cap on admitted links. Admission domains
// and shallow pages contribute more; deep generic pages contribute
// little, since value density drops quickly with depth.
func linkLimit(depth int, admission bool) int {
	if admission {
		if depth <= 2 {
			return admissionShallowLinkLimit
		}
		return admissionDeepLinkLimit
	}
	switch {
	case depth == 0:
		return rootLinkLimit
	case depth <= 2:
		return shallowLinkLimit
	default:
		return deepLinkLimit
	}
}

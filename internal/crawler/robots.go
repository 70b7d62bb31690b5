package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsBodyLimit caps how much of a robots.txt file is read.
const robotsBodyLimit = 512 * 1024

// RobotsGate answers whether a URL may be fetched under the site's
// robots.txt. Policies are fetched once per host and cached for the
// run. A host whose robots.txt cannot be fetched or parsed is treated
// as allowing everything; the crawl's own politeness pacing still
// applies.
type RobotsGate struct {
	mu     sync.Mutex
	groups map[string]*robotstxt.Group

	client    *http.Client
	userAgent string
}

// NewRobotsGate builds a gate fetching policies with the given client
// and evaluating them for userAgent.
func NewRobotsGate(client *http.Client, userAgent string) *RobotsGate {
	return &RobotsGate{
		groups:    make(map[string]*robotstxt.Group),
		client:    client,
		userAgent: userAgent,
	}
}

// Allowed reports whether rawURL may be fetched. Unparseable URLs are
// denied; missing or broken policies allow.
func (rg *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	group := rg.group(ctx, u)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// group returns the cached policy group for the URL's host, fetching
// it on first use. A nil group means no restrictions.
func (rg *RobotsGate) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	rg.mu.Lock()
	group, ok := rg.groups[key]
	rg.mu.Unlock()
	if ok {
		return group
	}

	group = rg.fetch(ctx, key)

	rg.mu.Lock()
	rg.groups[key] = group
	rg.mu.Unlock()
	return group
}

func (rg *RobotsGate) fetch(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rg.userAgent)

	resp, err := rg.client.Do(req)
	if err != nil {
		slog.Debug("robots.txt fetch failed", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsBodyLimit))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		slog.Debug("robots.txt parse failed", "origin", origin, "error", err)
		return nil
	}
	return robots.FindGroup(rg.userAgent)
}

package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ghoulbites/applycrawl/internal/model"
)

func newTestFrontier(state *State, opts FrontierOptions) *Frontier {
	if opts.MaxQueueSize == 0 {
		opts.MaxQueueSize = 100
	}
	if opts.MaxURLsPerDomain == 0 {
		opts.MaxURLsPerDomain = 100
	}
	if opts.MaxTotalURLs == 0 {
		opts.MaxTotalURLs = 1000
	}
	return NewFrontier(state, opts)
}

func task(url string, priority float64) model.CrawlTask {
	return model.CrawlTask{Priority: priority, URL: url, Target: model.TargetSite{Name: "U", Domain: "x.edu"}}
}

// TestFrontierPut tests admission control.
func TestFrontierPut(t *testing.T) {
	t.Parallel()

	t.Run("at most once per url", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{})
		if !f.Put(task("https://x.edu/apply", 5)) {
			t.Fatal("first put should succeed")
		}
		if f.Put(task("https://x.edu/apply", 5)) {
			t.Error("second put of same url should fail")
		}
	})

	t.Run("per-domain cap with critical bypass", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{MaxURLsPerDomain: 3})
		for i := 0; i < 3; i++ {
			if !f.Put(task(fmt.Sprintf("https://x.edu/p%d", i), 5)) {
				t.Fatalf("put %d should succeed under the cap", i)
			}
		}
		if f.Put(task("https://x.edu/p-over", 5)) {
			t.Error("put over the domain cap should fail")
		}
		if !f.Put(task("https://x.edu/apply-now", PriorityCritical)) {
			t.Error("critical task should bypass the domain cap")
		}
	})

	t.Run("queue size cap with critical bypass", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{MaxQueueSize: 2})
		f.Put(task("https://a.edu/1", 5))
		f.Put(task("https://b.edu/1", 5))
		if f.Put(task("https://c.edu/1", 5)) {
			t.Error("put into a full frontier should fail")
		}
		if !f.Put(task("https://c.edu/apply", PriorityCritical)) {
			t.Error("critical task should bypass the size cap")
		}
	})

	t.Run("global url limit", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{MaxTotalURLs: 2})
		f.Put(task("https://a.edu/1", 5))
		f.Put(task("https://b.edu/1", 5))
		if f.Put(task("https://c.edu/1", PriorityCritical)) {
			t.Error("global limit binds even for critical tasks")
		}
	})

	t.Run("dead domains are rejected", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{
			DomainCheck: func(domain string) bool { return domain != "dead.edu" },
		})
		if f.Put(task("https://dead.edu/apply", 5)) {
			t.Error("expected dead-domain rejection")
		}
		if !f.Put(task("https://live.edu/apply", 5)) {
			t.Error("expected live domain admitted")
		}
	})

	t.Run("unparseable url is rejected", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{})
		if f.Put(task("http://exa mple.edu/x", 5)) {
			t.Error("expected rejection for url without a host")
		}
	})
}

// TestFrontierGet tests priority ordering and pacing.
func TestFrontierGet(t *testing.T) {
	t.Parallel()

	t.Run("pops minimum priority first", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{})
		f.Put(task("https://a.edu/news", 12))
		f.Put(task("https://b.edu/apply", 1))
		f.Put(task("https://c.edu/about", 8))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		want := []string{"https://b.edu/apply", "https://c.edu/about", "https://a.edu/news"}
		for _, expected := range want {
			got, err := f.Get(ctx)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.URL != expected {
				t.Errorf("expected %s, got %s", expected, got.URL)
			}
		}
	})

	t.Run("equal priorities drain in insertion order", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{})
		f.Put(task("https://a.edu/1", 5))
		f.Put(task("https://b.edu/2", 5))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		first, _ := f.Get(ctx)
		second, _ := f.Get(ctx)
		if first.URL != "https://a.edu/1" || second.URL != "https://b.edu/2" {
			t.Errorf("expected FIFO tie-break, got %s then %s", first.URL, second.URL)
		}
	})

	t.Run("same-domain dequeues are paced", func(t *testing.T) {
		t.Parallel()

		interval := 150 * time.Millisecond
		f := newTestFrontier(NewState(), FrontierOptions{MinInterval: interval})
		f.Put(task("https://x.edu/1", 5))
		f.Put(task("https://x.edu/2", 5))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		start := time.Now()
		if _, err := f.Get(ctx); err != nil {
			t.Fatalf("first get failed: %v", err)
		}
		if _, err := f.Get(ctx); err != nil {
			t.Fatalf("second get failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < interval {
			t.Errorf("expected at least %v between same-domain dequeues, got %v", interval, elapsed)
		}
	})

	t.Run("get times out on empty frontier", func(t *testing.T) {
		t.Parallel()

		f := newTestFrontier(NewState(), FrontierOptions{})
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		if _, err := f.Get(ctx); err == nil {
			t.Error("expected context error from empty frontier")
		}
	})
}

// TestFrontierJoin tests the drain barrier.
func TestFrontierJoin(t *testing.T) {
	t.Parallel()

	f := newTestFrontier(NewState(), FrontierOptions{})
	f.Put(task("https://x.edu/apply", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.Get(ctx); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	// Task dequeued but not done: Join must not return yet.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer waitCancel()
	if err := f.Join(waitCtx); err == nil {
		t.Fatal("expected Join to block while a task is outstanding")
	}

	f.TaskDone()
	doneCtx, doneCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer doneCancel()
	if err := f.Join(doneCtx); err != nil {
		t.Errorf("expected Join to return after TaskDone, got %v", err)
	}
}

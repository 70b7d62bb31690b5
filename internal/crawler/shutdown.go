package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// shutdownPollInterval is how often WaitForCompletion re-checks the
// in-flight set.
const shutdownPollInterval = 100 * time.Millisecond

// ShutdownController coordinates a graceful stop: it tracks which
// tasks are in flight so the shutdown path can wait for them to drain
// before the process exits. Signal handlers only call RequestShutdown,
// which flips a flag; they never block or take long-held locks.
type ShutdownController struct {
	mu        sync.Mutex
	requested bool
	inFlight  map[string]struct{}
}

// NewShutdownController returns a controller with no tasks in flight.
func NewShutdownController() *ShutdownController {
	return &ShutdownController{
		inFlight: make(map[string]struct{}),
	}
}

// RequestShutdown flips the shutdown flag. It is idempotent and safe
// to call from a signal handler goroutine.
func (sc *ShutdownController) RequestShutdown() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.requested = true
}

// ShutdownRequested reports whether a shutdown has been requested.
func (sc *ShutdownController) ShutdownRequested() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.requested
}

// RegisterTask records a worker's in-flight task.
func (sc *ShutdownController) RegisterTask(workerID int, url string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.inFlight[taskKey(workerID, url)] = struct{}{}
}

// UnregisterTask removes a worker's in-flight task.
func (sc *ShutdownController) UnregisterTask(workerID int, url string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.inFlight, taskKey(workerID, url))
}

// ActiveTasks returns the number of tasks currently in flight.
func (sc *ShutdownController) ActiveTasks() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.inFlight)
}

// WaitForCompletion polls until every in-flight task has finished, the
// grace period expires, or ctx is cancelled. It returns false when
// tasks remain, telling the caller to escalate to hard termination.
func (sc *ShutdownController) WaitForCompletion(ctx context.Context, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()

	for {
		if sc.ActiveTasks() == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return sc.ActiveTasks() == 0
		case <-ticker.C:
		}
	}
}

func taskKey(workerID int, url string) string {
	return fmt.Sprintf("%d:%s", workerID, url)
}

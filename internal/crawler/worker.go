package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// dequeueWait is the timeout applied to each dequeue attempt so
// workers stay responsive to the stop flag.
const dequeueWait = 1 * time.Second

// timeoutBackoffUnit scales the exponential backoff a worker applies
// after consecutive task timeouts.
const timeoutBackoffUnit = 500 * time.Millisecond

// maxTimeoutBackoffShift caps the backoff exponent so the sleep never
// exceeds timeoutBackoffUnit << maxTimeoutBackoffShift.
const maxTimeoutBackoffShift = 5

// Pool runs a fixed number of workers draining the frontier through
// the fetcher. Pacing lives in the frontier and politeness in the
// fetcher; the pool only supplies concurrency and shutdown behavior.
type Pool struct {
	workers  int
	frontier *Frontier
	fetcher  *Fetcher
	state    *State
	shutdown *ShutdownController

	// taskTimeout bounds one complete fetch, decode and expansion.
	taskTimeout time.Duration
}

// NewPool builds a pool of n workers.
func NewPool(n int, frontier *Frontier, fetcher *Fetcher, state *State, shutdown *ShutdownController, taskTimeout time.Duration) *Pool {
	return &Pool{
		workers:     n,
		frontier:    frontier,
		fetcher:     fetcher,
		state:       state,
		shutdown:    shutdown,
		taskTimeout: taskTimeout,
	}
}

// Run starts the workers and blocks until all of them have exited.
// Workers exit when the stop flag drops, a shutdown is requested, or
// ctx is cancelled. Run never returns a task-level error; the worker
// loop is the last line of defense and logs-and-continues.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			p.workerLoop(ctx, id)
			return nil
		})
	}
	return g.Wait()
}

// workerLoop is one worker's lifetime: dequeue with a short timeout,
// register, fetch under the task timeout, unregister, mark done. After
// consecutive timeouts it sleeps with exponential backoff so a slow or
// dead network does not spin the pool.
func (p *Pool) workerLoop(ctx context.Context, id int) {
	consecutiveTimeouts := 0

	for {
		if ctx.Err() != nil || !p.state.Running() || p.shutdown.ShutdownRequested() {
			slog.Debug("worker exiting", "worker", id)
			return
		}

		dequeueCtx, cancel := context.WithTimeout(ctx, dequeueWait)
		task, err := p.frontier.Get(dequeueCtx)
		cancel()
		if err != nil {
			// An empty frontier during a wind-down is normal; just
			// loop back to the stop checks.
			continue
		}

		p.shutdown.RegisterTask(id, task.URL)
		taskCtx, cancelTask := context.WithTimeout(ctx, p.taskTimeout)
		result := p.fetcher.Fetch(taskCtx, task)
		cancelTask()
		p.shutdown.UnregisterTask(id, task.URL)
		p.frontier.TaskDone()

		switch result.Kind {
		case ResultCompleted, ResultSkippedRobots, ResultAbortedStatus:
			consecutiveTimeouts = 0

		case ResultAbortedRedirect:
			consecutiveTimeouts = 0

		case ResultAbortedNetwork:
			if isTimeout(result.Err) {
				consecutiveTimeouts++
				p.backoff(ctx, id, consecutiveTimeouts)
			} else {
				consecutiveTimeouts = 0
			}

		case ResultAbortedShutdown:
			return
		}
	}
}

// backoff sleeps exponentially in the count of consecutive timeouts.
func (p *Pool) backoff(ctx context.Context, id, consecutive int) {
	shift := consecutive
	if shift > maxTimeoutBackoffShift {
		shift = maxTimeoutBackoffShift
	}
	sleep := timeoutBackoffUnit << shift
	slog.Debug("worker backing off", "worker", id, "consecutive_timeouts", consecutive, "sleep", sleep)
	select {
	case <-ctx.Done():
	case <-time.After(sleep):
	}
}

// isTimeout reports whether an error is a deadline or net timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

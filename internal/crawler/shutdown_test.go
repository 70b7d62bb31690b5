package crawler

import (
	"context"
	"testing"
	"time"
)

// TestShutdownController tests the in-flight task registry and the
// completion wait.
func TestShutdownController(t *testing.T) {
	t.Parallel()

	t.Run("request is idempotent", func(t *testing.T) {
		t.Parallel()

		sc := NewShutdownController()
		if sc.ShutdownRequested() {
			t.Fatal("fresh controller should not be in shutdown")
		}
		sc.RequestShutdown()
		sc.RequestShutdown()
		if !sc.ShutdownRequested() {
			t.Error("expected shutdown flag set")
		}
	})

	t.Run("tracks in-flight tasks", func(t *testing.T) {
		t.Parallel()

		sc := NewShutdownController()
		sc.RegisterTask(1, "https://x.edu/a")
		sc.RegisterTask(2, "https://x.edu/b")
		if got := sc.ActiveTasks(); got != 2 {
			t.Fatalf("expected 2 active tasks, got %d", got)
		}
		sc.UnregisterTask(1, "https://x.edu/a")
		if got := sc.ActiveTasks(); got != 1 {
			t.Errorf("expected 1 active task, got %d", got)
		}
	})

	t.Run("wait returns immediately when idle", func(t *testing.T) {
		t.Parallel()

		sc := NewShutdownController()
		if !sc.WaitForCompletion(context.Background(), time.Second) {
			t.Error("expected immediate completion with no tasks")
		}
	})

	t.Run("wait escalates on stuck tasks", func(t *testing.T) {
		t.Parallel()

		sc := NewShutdownController()
		sc.RegisterTask(1, "https://x.edu/stuck")
		if sc.WaitForCompletion(context.Background(), 200*time.Millisecond) {
			t.Error("expected false when a task never finishes")
		}
	})

	t.Run("wait observes late completion", func(t *testing.T) {
		t.Parallel()

		sc := NewShutdownController()
		sc.RegisterTask(1, "https://x.edu/slow")
		go func() {
			time.Sleep(150 * time.Millisecond)
			sc.UnregisterTask(1, "https://x.edu/slow")
		}()
		if !sc.WaitForCompletion(context.Background(), 5*time.Second) {
			t.Error("expected completion once the task unregisters")
		}
	})
}

package async

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunParallel_Success(t *testing.T) {
	t.Parallel()
	var count atomic.Int32

	tasks := make([]Task, 3)
	for i := range tasks {
		tasks[i] = Task{Name: "task", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}}
	}

	if err := RunParallel(context.Background(), tasks, 0); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if count.Load() != 3 {
		t.Errorf("expected 3 tasks to run, got %d", count.Load())
	}
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	t.Parallel()

	if err := RunParallel(context.Background(), nil, 0); err != nil {
		t.Errorf("expected no error for empty tasks, got: %v", err)
	}
}

func TestRunParallel_MultipleErrors(t *testing.T) {
	t.Parallel()
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	tasks := []Task{
		{Name: "fail1", Func: func(_ context.Context) error { return err1 }},
		{Name: "ok", Func: func(_ context.Context) error { return nil }},
		{Name: "fail2", Func: func(_ context.Context) error { return err2 }},
	}

	err := RunParallel(context.Background(), tasks, 0)
	if !errors.Is(err, err1) || !errors.Is(err, err2) {
		t.Errorf("expected both errors to be joined, got: %v", err)
	}
	if !strings.Contains(err.Error(), "fail1") {
		t.Errorf("error message should contain task name, got: %s", err)
	}
}

func TestRunParallel_FailureDoesNotCancelSiblings(t *testing.T) {
	t.Parallel()
	var completed atomic.Int32

	tasks := []Task{
		{Name: "fast-fail", Func: func(_ context.Context) error {
			return errors.New("fast fail")
		}},
		{Name: "slow", Func: func(_ context.Context) error {
			time.Sleep(20 * time.Millisecond)
			completed.Add(1)
			return nil
		}},
	}

	if err := RunParallel(context.Background(), tasks, 0); err == nil {
		t.Fatal("expected error")
	}
	if completed.Load() != 1 {
		t.Errorf("expected slow task to complete, got %d", completed.Load())
	}
}

func TestRunParallel_Limit(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		limit int
		want  int32
	}{
		{name: "unbounded", limit: 0, want: 6},
		{name: "bounded", limit: 2, want: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var current, peak atomic.Int32

			tasks := make([]Task, 6)
			for i := range tasks {
				tasks[i] = Task{Name: "task", Func: func(_ context.Context) error {
					c := current.Add(1)
					for {
						old := peak.Load()
						if c <= old || peak.CompareAndSwap(old, c) {
							break
						}
					}
					time.Sleep(30 * time.Millisecond)
					current.Add(-1)
					return nil
				}}
			}

			if err := RunParallel(context.Background(), tasks, tc.limit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if peak.Load() != tc.want {
				t.Errorf("expected peak concurrency %d, got %d", tc.want, peak.Load())
			}
		})
	}
}

func TestRunParallel_ContextPassedThrough(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunParallel(ctx, []Task{{Name: "task", Func: func(ctx context.Context) error {
		return ctx.Err()
	}}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled error, got: %v", err)
	}
}

package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestWriteBehindAppliesJobs(t *testing.T) {
	wb := NewWriteBehind(8)
	var applied int64
	for i := 0; i < 5; i++ {
		wb.Enqueue("incr", func(ctx context.Context) error {
			atomic.AddInt64(&applied, 1)
			return nil
		})
	}
	wb.Close()
	if got := atomic.LoadInt64(&applied); got != 5 {
		t.Fatalf("expected 5 applied jobs after drain, got %d", got)
	}
}

func TestWriteBehindSurvivesFailures(t *testing.T) {
	wb := NewWriteBehind(8)
	var applied int64
	wb.Enqueue("fail", func(ctx context.Context) error {
		return errors.New("store unavailable")
	})
	wb.Enqueue("incr", func(ctx context.Context) error {
		atomic.AddInt64(&applied, 1)
		return nil
	})
	wb.Close()
	if got := atomic.LoadInt64(&applied); got != 1 {
		t.Fatalf("a failed job must not stop the worker, got %d applied", got)
	}
}

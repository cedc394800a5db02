package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickSkipsWhilePreviousRunInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs int
	var mu sync.Mutex

	job := &Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) (string, error) {
			mu.Lock()
			runs++
			mu.Unlock()
			close(started)
			<-release
			return "done", nil
		},
	}

	go job.tick(context.Background(), silentLogger())
	<-started

	// A concurrent tick while the first is still running should be a no-op.
	job.tick(context.Background(), silentLogger())

	close(release)
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("got %d runs, want 1 (second tick should have been skipped)", runs)
	}
}

func TestTriggerNowReturnsResult(t *testing.T) {
	job := &Job{
		Name: "once",
		Run: func(ctx context.Context) (string, error) {
			return "ok", nil
		},
	}
	result, err := job.TriggerNow(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("got %q, want ok", result)
	}
}

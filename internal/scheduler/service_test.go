package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dwizi/job-agent/internal/heartbeat"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 2, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNextRunHonorsDescriptors(t *testing.T) {
	from := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	next, err := NextRun("@hourly", from)
	if err != nil {
		t.Fatalf("next run: %v", err)
	}
	if !next.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run %s", next)
	}
	next, err = NextRun("  30   2 * * * ", from)
	if err != nil {
		t.Fatalf("next run: %v", err)
	}
	if !next.Equal(time.Date(2026, 3, 11, 2, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run %s", next)
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	if _, err := New(&fakeSweeper{}, "every tuesday", testLogger()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStartSweepsImmediatelyAndStops(t *testing.T) {
	sweeper := &fakeSweeper{}
	service, err := New(sweeper, "@daily", testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	registry := heartbeat.NewRegistry()
	service.SetHeartbeatReporter(registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sweeper.calls.Load() != 1 {
		t.Fatalf("expected startup sweep, got %d calls", sweeper.calls.Load())
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start returned error: %v", err)
	}
	snapshot := registry.Snapshot(time.Minute)
	if len(snapshot.Components) != 1 || snapshot.Components[0].State != heartbeat.StateStopped {
		t.Fatalf("expected stopped component, got %+v", snapshot.Components)
	}
}

func TestRunOnceDegradesOnFailure(t *testing.T) {
	service, err := New(&fakeSweeper{err: errors.New("disk full")}, "", testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	registry := heartbeat.NewRegistry()
	service.SetHeartbeatReporter(registry)
	service.RunOnce(context.Background())

	snapshot := registry.Snapshot(time.Minute)
	if len(snapshot.Components) != 1 || snapshot.Components[0].State != heartbeat.StateDegraded {
		t.Fatalf("expected degraded component, got %+v", snapshot.Components)
	}
}

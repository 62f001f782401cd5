package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"ctawatch/internal/feed"
	logx "ctawatch/pkg/logx"
)

// blockingFetcher parks Fetch until released so a cycle can be held
// in-flight while further ticks arrive.
type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) Fetch(ctx context.Context) ([]feed.Alert, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first {
		close(f.started)
		<-f.release
	}
	return []feed.Alert{}, nil
}

func (f *blockingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTickDropsOverlappingCycle(t *testing.T) {
	f := newBlockingFetcher()
	m := newMemStore()
	w := newWatcher(f, m, &capturePoster{}, Options{})
	s := NewScheduler(w.RunCycle, time.Hour, logx.Nop())

	done := make(chan bool)
	go func() { done <- s.Tick(context.Background()) }()

	<-f.started
	// Second tick while the first cycle is parked in Fetch.
	if s.Tick(context.Background()) {
		t.Fatalf("overlapping tick must be dropped")
	}
	if f.count() != 1 {
		t.Fatalf("expected a single fetch across two rapid ticks, got %d", f.count())
	}

	close(f.release)
	if !<-done {
		t.Fatalf("first tick should have run the cycle")
	}

	// Guard is back to idle: the next tick runs.
	if !s.Tick(context.Background()) {
		t.Fatalf("tick after completion must run")
	}
	if f.count() != 2 {
		t.Fatalf("expected two fetches total, got %d", f.count())
	}
}

func TestTickResetsGuardAfterFailedCycle(t *testing.T) {
	f := &fakeFetcher{err: context.DeadlineExceeded}
	w := newWatcher(f, newMemStore(), &capturePoster{}, Options{})
	s := NewScheduler(w.RunCycle, time.Hour, logx.Nop())

	if !s.Tick(context.Background()) {
		t.Fatalf("first tick must run")
	}
	if !s.Tick(context.Background()) {
		t.Fatalf("guard must return to idle after a failed cycle")
	}
	if f.calls != 2 {
		t.Fatalf("expected 2 fetch attempts, got %d", f.calls)
	}
}

func TestStartRunsImmediateCycle(t *testing.T) {
	f := &fakeFetcher{alerts: []feed.Alert{}}
	w := newWatcher(f, newMemStore(), &capturePoster{}, Options{})
	s := NewScheduler(w.RunCycle, time.Hour, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown(context.Background())

	if f.calls != 1 {
		t.Fatalf("expected the initial cycle to run at startup, got %d fetches", f.calls)
	}
}

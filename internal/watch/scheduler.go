package watch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "ctawatch/pkg/logx"
)

const (
	stateIdle int32 = iota
	stateRunning
)

// Scheduler drives the cycle on a fixed interval with single-flight
// semantics: a tick arriving while a cycle is still running is dropped,
// never queued. That guard is what makes the read-then-write store
// access in RunCycle safe without transactions.
type Scheduler struct {
	log      logx.Logger
	run      func(ctx context.Context) error
	interval time.Duration

	state atomic.Int32
	cron  *cron.Cron

	ctx context.Context
}

func NewScheduler(run func(ctx context.Context) error, interval time.Duration, log logx.Logger) *Scheduler {
	return &Scheduler{
		log:      log,
		run:      run,
		interval: interval,
	}
}

// Tick runs one cycle unless one is already in flight. It reports
// whether the cycle actually ran. The guard resets via defer so a
// failed cycle still returns the scheduler to idle.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.state.CompareAndSwap(stateIdle, stateRunning) {
		s.log.Debug("cycle still in progress; tick dropped")
		return false
	}
	defer s.state.Store(stateIdle)

	if err := s.run(ctx); err != nil {
		s.log.Warn("cycle failed", logx.Err(err))
	}
	return true
}

// Start runs an immediate first cycle, then fires Tick every interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	s.Tick(ctx)

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() { s.Tick(s.ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("poll scheduler started", logx.Duration("interval", s.interval))
	return nil
}

// Shutdown stops the timer and waits for an in-flight cycle, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) {
	if s.cron == nil {
		return
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.log.Warn("shutdown timed out waiting for running cycle")
	}
}

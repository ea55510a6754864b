// Package scheduler runs the lookup front end's background jobs: probing the
// medicine backend for /health, sweeping idle browser sessions and cleaning up
// registered janitors such as the rate limiter.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Options sets job intervals
type Options struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	SweepInterval time.Duration
	IdleTimeout   time.Duration

	CleanupInterval time.Duration
}

// DefaultOptions probes every minute, sweeps every five and cleans up every thirty
func DefaultOptions(idleTimeout time.Duration) Options {
	return Options{
		ProbeInterval:   time.Minute,
		ProbeTimeout:    5 * time.Second,
		SweepInterval:   5 * time.Minute,
		IdleTimeout:     idleTimeout,
		CleanupInterval: 30 * time.Minute,
	}
}

// Scheduler handles the upstream probe and session sweep using dependency injection
type Scheduler struct {
	sessions  interfaces.SessionStore
	prober    interfaces.UpstreamProber
	health    interfaces.HealthChecker
	opts      Options
	janitors  map[string]interfaces.Janitor
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(sessions interfaces.SessionStore, prober interfaces.UpstreamProber, health interfaces.HealthChecker, opts Options) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	return &Scheduler{
		sessions:  sessions,
		prober:    prober,
		health:    health,
		opts:      opts,
		janitors:  make(map[string]interfaces.Janitor),
		scheduler: s,
	}
}

// AddJanitor registers j for the periodic cleanup job. Call before Start.
func (s *Scheduler) AddJanitor(name string, j interfaces.Janitor) {
	s.janitors[name] = j
}

// Start probes the backend once, then schedules both jobs. An unreachable
// backend at startup is logged, not fatal: pages still render their empty
// state.
func (s *Scheduler) Start() error {
	if err := s.probe(); err != nil {
		logging.Warn("Medicine backend unreachable at startup", "error", err)
	}

	if _, err := s.scheduler.Every(s.opts.ProbeInterval).Do(func() {
		if err := s.probe(); err != nil {
			logging.Warn("Medicine backend probe failed", "error", err)
		}
	}); err != nil {
		logging.Error("Failed to schedule upstream probe", "error", err)
		return fmt.Errorf("failed to schedule upstream probe: %w", err)
	}

	if _, err := s.scheduler.Every(s.opts.SweepInterval).WaitForSchedule().Do(s.sweep); err != nil {
		logging.Error("Failed to schedule session sweep", "error", err)
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	if len(s.janitors) > 0 {
		if _, err := s.scheduler.Every(s.opts.CleanupInterval).WaitForSchedule().Do(s.cleanup); err != nil {
			logging.Error("Failed to schedule cleanup", "error", err)
			return fmt.Errorf("failed to schedule cleanup: %w", err)
		}
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started",
		"probe_interval", s.opts.ProbeInterval.String(),
		"sweep_interval", s.opts.SweepInterval.String(),
		"idle_timeout", s.opts.IdleTimeout.String(),
	)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// probe pings the backend and records the outcome
func (s *Scheduler) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ProbeTimeout)
	defer cancel()

	err := s.prober.Ping(ctx)
	s.health.RecordProbe(err, time.Now())
	return err
}

// sweep drops sessions idle for longer than the timeout
func (s *Scheduler) sweep() {
	start := time.Now()
	removed := s.sessions.Sweep(s.opts.IdleTimeout)
	logging.Debug("Session sweep completed", "removed", removed, "remaining", s.sessions.Len(), "duration", time.Since(start).String())
}

// cleanup runs every registered janitor
func (s *Scheduler) cleanup() {
	for name, j := range s.janitors {
		if removed := j.Cleanup(); removed > 0 {
			logging.Debug("Cleanup completed", "janitor", name, "removed", removed)
		}
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SweepSchedulerConfig holds configuration for the sweep scheduler
type SweepSchedulerConfig struct {
	// Interval is how often to sweep all active users (default: 15m)
	Interval time.Duration

	// RunOnStart sweeps once immediately when the scheduler starts
	RunOnStart bool
}

// DefaultSweepSchedulerConfig returns sensible defaults
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// Sweeper runs one sweep over every active user.
type Sweeper interface {
	SweepActiveUsers(ctx context.Context) (SweepReport, error)
}

// SweepScheduler triggers the periodic sweep on a fixed interval.
type SweepScheduler struct {
	sweeper Sweeper
	config  SweepSchedulerConfig

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	stopOnce *sync.Once
	doneCh   chan struct{}

	lastReport SweepReport
}

func NewSweepScheduler(sweeper Sweeper, config SweepSchedulerConfig) *SweepScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepSchedulerConfig().Interval
	}
	return &SweepScheduler{
		sweeper: sweeper,
		config:  config,
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweep scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.stopOnce = &sync.Once{}
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Sweep scheduler started",
		"interval", s.config.Interval,
		"run_on_start", s.config.RunOnStart)

	return nil
}

// Stop gracefully stops the scheduler and waits for an in-flight sweep.
// It may be called again after a timeout to keep waiting.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, stopOnce, doneCh := s.stopCh, s.stopOnce, s.doneCh
	s.mu.Unlock()

	stopOnce.Do(func() { close(stopCh) })

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the report of the most recent completed sweep.
func (s *SweepScheduler) LastReport() SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

func (s *SweepScheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.sweep(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SweepScheduler) sweep(ctx context.Context) {
	report, err := s.sweeper.SweepActiveUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Periodic sweep failed", "error", err)
		return
	}

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
}

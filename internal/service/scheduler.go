package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultTickInterval = 30 * time.Second

// TickRunner runs one delivery pass.
type TickRunner interface {
	Tick(ctx context.Context) (TickResult, error)
}

// Scheduler owns the periodic trigger for the delivery worker. It is an
// explicit handle rather than a package-level flag: Start is idempotent and
// the loop lifetime is bound to the caller's context. A tick left running
// when the next edge fires is harmless; the job store's conditional updates
// keep overlapping passes from double-sending.
type Scheduler struct {
	worker   TickRunner
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(worker TickRunner, interval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if worker == nil {
		return nil, fmt.Errorf("tick runner is required")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		worker:   worker,
		interval: interval,
		logger:   logger,
	}, nil
}

// Start launches the tick loop. Calling Start while the loop is already
// running is a no-op. The loop stops when ctx is canceled, after which Start
// may be called again.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("scheduler already running, start ignored")
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.run(ctx)
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	// Run an initial tick so already-due jobs do not wait for the first
	// ticker edge.
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.worker.Tick(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("tick failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/rs/zerolog/log"
)

// MaintenanceRunner is the part of MaintenanceJob the scheduler needs.
type MaintenanceRunner interface {
	RunMaintenance(ctx context.Context) (*model.MaintenanceReport, error)
}

// Scheduler triggers maintenance runs on a fixed interval.
type Scheduler struct {
	runner   MaintenanceRunner
	interval time.Duration
	timeout  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a scheduler. Each run is bounded by timeout when
// positive.
func NewScheduler(runner MaintenanceRunner, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, timeout: timeout}
}

// Start launches the loop. It is a no-op when the interval is not positive
// or the scheduler is already started.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		log.Info().Msg("Maintenance scheduler disabled")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(loopCtx)
	log.Info().Dur("interval", s.interval).Msg("Maintenance scheduler started")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_, err := s.runner.RunMaintenance(ctx)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrMaintenanceInProgress):
		log.Debug().Msg("Scheduled maintenance skipped, a run is already in progress")
	default:
		log.Error().Err(err).Msg("Scheduled maintenance failed")
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
}

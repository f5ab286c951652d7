package tracker

import (
	"context"
	"time"

	"github.com/episodarr/episodarr/pkg/logger"
	"go.uber.org/zap"
)

// Scheduler runs periodic refresh passes over the stale shows.
type Scheduler struct {
	tracker  *Tracker
	interval time.Duration
}

func NewScheduler(t *Tracker, interval time.Duration) *Scheduler {
	return &Scheduler{tracker: t, interval: interval}
}

// Run refreshes once immediately, then on every tick until the context is
// canceled. Per-show failures are reported inside the pass result and never
// stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.FromCtx(ctx)
	log.Info("starting refresh scheduler", zap.Duration("interval", s.interval))

	if err := s.pass(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("refresh scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.pass(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) error {
	log := logger.FromCtx(ctx)

	result, err := s.tracker.RefreshStale(ctx)
	if err != nil {
		return err
	}

	for id, refreshErr := range result.Errors {
		log.Warn("show refresh failed", zap.String("show_id", id), zap.Error(refreshErr))
	}
	return nil
}

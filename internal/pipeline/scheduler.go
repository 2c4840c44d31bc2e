package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds one scheduled sweep.
const sweepTimeout = 30 * time.Minute

// Scheduler runs the resend sweep on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers the sweep under schedule (standard five-field cron
// syntax). It returns nil, nil when schedule is empty.
func NewScheduler(schedule string, sweeper *Sweeper, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		sweeper.ResendDueSummaries(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: invalid sweep schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("resend sweep scheduled", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for a running sweep or ctx, whichever
// finishes first.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("resend sweep still running at shutdown")
	}
}

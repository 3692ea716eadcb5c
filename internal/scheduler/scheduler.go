package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TickFunc is invoked on every scheduled run.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	CronSpec     string
	Location     *time.Location
	StartupDelay time.Duration
}

// Scheduler drives cron-based execution of acquisition runs.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function on the cron schedule until ctx is
// cancelled. Tick errors are logged, never fatal to the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	runner := cron.New(cron.WithLocation(s.opts.Location))
	entryID, err := runner.AddFunc(s.opts.CronSpec, func() {
		at := time.Now().In(s.opts.Location)
		s.logger.Info().Time("tick", at).Msg("executing scheduled run")
		if err := tick(ctx, at); err != nil {
			s.logger.Error().Err(err).Time("tick", at).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("register cron schedule %q: %w", s.opts.CronSpec, err)
	}

	runner.Start()
	s.logger.Info().
		Str("cron", s.opts.CronSpec).
		Str("timezone", s.opts.Location.String()).
		Time("next", runner.Entry(entryID).Next).
		Msg("scheduler started")

	<-ctx.Done()

	stopCtx := runner.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// JobFunc is invoked once per interval tick.
type JobFunc func(ctx context.Context) error

// Scheduler drives sequential, interval-aligned runs of a job. Ticks
// never overlap: the next wait starts only after the job returns.
type Scheduler struct {
	interval time.Duration
	logger   zerolog.Logger
}

// New constructs a Scheduler.
func New(interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{interval: interval, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking job on each aligned interval until ctx is
// cancelled. A failing tick is logged and the loop continues; per-run
// error handling stays inside the job.
func (s *Scheduler) Run(ctx context.Context, job JobFunc) error {
	next := nextTick(time.Now().UTC(), s.interval)
	for {
		timer := time.NewTimer(time.Until(next))
		s.logger.Debug().Time("next_tick", next).Msg("waiting for next tick")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.logger.Info().Time("tick", next).Msg("executing scheduled run")
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Time("tick", next).Msg("run failed")
		}

		next = nextTick(time.Now().UTC(), s.interval)
	}
}

func nextTick(now time.Time, interval time.Duration) time.Time {
	t := now.Truncate(interval)
	if !t.After(now) {
		t = t.Add(interval)
	}
	return t
}

// Package scheduler drives time-based market resolution. The sweeper
// periodically asks the market service to resolve every expired-but-open
// market; each market is its own atomic unit, so cancelling mid-sweep loses
// at most the markets not yet processed, which the next sweep retries.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is how often expired markets are swept.
const DefaultInterval = time.Hour

// Resolver is the slice of the market service the sweeper needs.
type Resolver interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper runs the expiry sweep on a fixed interval, with one immediate
// sweep at startup.
type Sweeper struct {
	resolver Resolver
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to the
// default of one hour.
func NewSweeper(resolver Resolver, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		resolver: resolver,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick. Sweep errors are logged, never fatal.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "sweeper starting",
		slog.Duration("interval", s.interval),
	)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	resolved, err := s.resolver.SweepExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed",
			slog.Int("resolved", resolved),
			slog.String("error", err.Error()),
		)
		return
	}
	if resolved > 0 {
		s.logger.InfoContext(ctx, "sweep resolved expired markets",
			slog.Int("resolved", resolved),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"beacon/internal/metrics"
)

// SweeperConfig controls the periodic expired-record sweep.
type SweeperConfig struct {
	// Interval between sweeps. Default 24h.
	Interval time.Duration

	// HourUTC aligns the first sweep to the next occurrence of this
	// off-peak hour (0-23). Negative disables alignment and the first
	// sweep runs after one Interval.
	HourUTC int
}

// DefaultSweeperConfig returns the daily-at-03:00-UTC schedule.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 24 * time.Hour,
		HourUTC:  3,
	}
}

// Sweeper deletes expired refresh records on a fixed schedule.
//
// It is single-flight: if a sweep is still running when the next tick fires,
// that tick is skipped. Two sweeps never run concurrently.
type Sweeper struct {
	log   *slog.Logger
	store Store
	cfg   SweeperConfig

	running sync.Mutex
}

// NewSweeper constructs a Sweeper over store.
func NewSweeper(log *slog.Logger, store Store, cfg SweeperConfig) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweeperConfig().Interval
	}
	return &Sweeper{log: log, store: store, cfg: cfg}
}

// Run blocks until ctx is cancelled, sweeping on the configured schedule.
func (s *Sweeper) Run(ctx context.Context) {
	if delay := s.initialDelay(time.Now().UTC()); delay > 0 {
		s.log.Info("sweeper.start", "first_run_in", delay.String(), "interval", s.cfg.Interval.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		s.Sweep(ctx)
	}

	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper.stop")
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one sweep now, unless another sweep is already in flight, in
// which case it returns false immediately.
func (s *Sweeper) Sweep(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.log.Warn("sweeper.skip", "reason", "previous sweep still running")
		return false
	}
	defer s.running.Unlock()

	now := time.Now().UTC()
	deleted, err := s.store.SweepExpired(ctx, now)
	metrics.SweepRuns.Inc()
	if err != nil {
		s.log.Error("sweeper.fail", "err", err)
		return true
	}

	metrics.SweepDeleted.Add(float64(deleted))
	s.log.Info("sweeper.done", "deleted", deleted)
	return true
}

func (s *Sweeper) initialDelay(now time.Time) time.Duration {
	if s.cfg.HourUTC < 0 || s.cfg.HourUTC > 23 {
		return s.cfg.Interval
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.HourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// Package retention removes canceled and completed records whose grace
// period has expired. Records are soft-deleted first (deletion_time set by
// cancel or upload completion) so clients keep seeing them briefly; the
// sweeper turns that into a hard delete.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/intraylabs/intray/internal/store"
)

// Config controls grace period and sweep cadence.
type Config struct {
	MaxAge   time.Duration // how long a soft-deleted record survives
	Interval time.Duration // sweep interval
}

// Sweeper deletes expired records on a timer.
type Sweeper struct {
	store store.Store
	cfg   Config
	log   zerolog.Logger
}

// NewSweeper constructs a Sweeper with defaulted config.
func NewSweeper(s store.Store, cfg Config, log zerolog.Logger) *Sweeper {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Sweeper{store: s, cfg: cfg, log: log}
}

// Run sweeps until ctx is canceled. One sweep runs immediately so a restart
// never postpones overdue deletions by a full interval.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("max_age", s.cfg.MaxAge).Dur("interval", s.cfg.Interval).Msg("retention sweeper starting")

	s.sweepOnce(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("retention sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.MaxAge)
	n, err := s.store.Records().PurgeDeleted(ctx, cutoff)
	if err != nil {
		// Log and continue; the next cycle retries the same rows.
		s.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("purged expired records")
	}
}

package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpiredCompleter is the slice of the reservation service the sweeper needs.
type ExpiredCompleter interface {
	CompleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// Sweeper periodically auto-completes pending reservations whose date has
// passed, so stale bookings do not keep blocking their slots forever.
type Sweeper struct {
	svc      ExpiredCompleter
	interval time.Duration
	grace    time.Duration
	logger   zerolog.Logger
}

func NewSweeper(svc ExpiredCompleter, interval time.Duration, graceDays int, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sweeper").Logger()
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		grace:    time.Duration(graceDays) * 24 * time.Hour,
		logger:   base,
	}
}

// Start runs the sweep loop until ctx is done. The first sweep happens
// immediately so a restart catches up without waiting a full interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")
	defer s.logger.Info().Msg("sweeper stopped")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.grace)
	completed, err := s.svc.CompleteExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
		return
	}
	if completed > 0 {
		s.logger.Info().Int("completed", completed).Msg("auto-completed expired reservations")
	}
}

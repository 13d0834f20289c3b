package repository

import (
	"context"
	"sync/atomic"
	"time"

	"stolik/internal/domain"
	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// FailoverOccupancyRepository routes cache traffic to the primary (Redis)
// until it errors, then serves from the fallback. The primary is retried
// after a cooldown so a Redis restart heals without a redeploy.
type FailoverOccupancyRepository struct {
	primary  domain.OccupancyCache
	fallback domain.OccupancyCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// Unix nanos of the last failed primary attempt. Written and read from
	// concurrent request goroutines.
	lastCheck atomic.Int64
}

func NewFailoverOccupancyRepository(primary, fallback domain.OccupancyCache, logger *zerolog.Logger) *FailoverOccupancyRepository {
	return &FailoverOccupancyRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverOccupancyRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary occupancy cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverOccupancyRepository) cooldownOver() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverOccupancyRepository) GetOccupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error) {
	if !r.isDown.Load() {
		occ, err := r.primary.GetOccupancy(ctx, resourceID, date)
		if err == nil {
			return occ, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && r.cooldownOver() {
		occ, err := r.primary.GetOccupancy(ctx, resourceID, date)
		if err == nil {
			r.isDown.Store(false)
			return occ, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetOccupancy(ctx, resourceID, date)
}

func (r *FailoverOccupancyRepository) SetOccupancy(ctx context.Context, occ *models.DayOccupancy) error {
	if !r.isDown.Load() {
		err := r.primary.SetOccupancy(ctx, occ)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetOccupancy(ctx, occ)
}

func (r *FailoverOccupancyRepository) InvalidateOccupancy(ctx context.Context, resourceID int64, date time.Time) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateOccupancy(ctx, resourceID, date)
		if err == nil {
			// The fallback may hold a stale copy from a down period.
			return r.fallback.InvalidateOccupancy(ctx, resourceID, date)
		}
		r.markDown(err)
	}

	return r.fallback.InvalidateOccupancy(ctx, resourceID, date)
}

func (r *FailoverOccupancyRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stolik/internal/models"
)

// MemoryOccupancyRepository is the in-process fallback used when Redis is
// unreachable or not configured. Entries carry the same TTL semantics and are
// checked lazily on read.
type MemoryOccupancyRepository struct {
	occupancies sync.Map
	rateLimits  sync.Map
	ttl         time.Duration
}

func NewMemoryOccupancyRepository(ttl time.Duration) *MemoryOccupancyRepository {
	return &MemoryOccupancyRepository{
		ttl: ttl,
	}
}

type occupancyEntry struct {
	occ       *models.DayOccupancy
	expiresAt time.Time
}

func memoryKey(resourceID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", resourceID, date.Format(models.DateLayout))
}

func (r *MemoryOccupancyRepository) GetOccupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error) {
	val, ok := r.occupancies.Load(memoryKey(resourceID, date))
	if !ok {
		return nil, nil
	}
	entry := val.(*occupancyEntry)
	if time.Now().After(entry.expiresAt) {
		r.occupancies.Delete(memoryKey(resourceID, date))
		return nil, nil
	}
	return entry.occ, nil
}

func (r *MemoryOccupancyRepository) SetOccupancy(ctx context.Context, occ *models.DayOccupancy) error {
	key := fmt.Sprintf("%d:%s", occ.ResourceID, occ.Date)
	r.occupancies.Store(key, &occupancyEntry{
		occ:       occ,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryOccupancyRepository) InvalidateOccupancy(ctx context.Context, resourceID int64, date time.Time) error {
	r.occupancies.Delete(memoryKey(resourceID, date))
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryOccupancyRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}

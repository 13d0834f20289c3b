package repository

import (
	"context"
	"testing"
	"time"

	"stolik/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOccupancyRepository(t *testing.T) {
	repo := NewMemoryOccupancyRepository(time.Hour)
	ctx := context.Background()
	date := testDay(t, "2024-06-01")

	t.Run("SetAndGetOccupancy", func(t *testing.T) {
		occ := &models.DayOccupancy{ResourceID: 1, Date: "2024-06-01", Capacity: 4}
		require.NoError(t, repo.SetOccupancy(ctx, occ))

		got, err := repo.GetOccupancy(ctx, 1, date)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(4), got.Capacity)
	})

	t.Run("GetMissingOccupancy", func(t *testing.T) {
		got, err := repo.GetOccupancy(ctx, 999, date)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("InvalidateOccupancy", func(t *testing.T) {
		occ := &models.DayOccupancy{ResourceID: 2, Date: "2024-06-01", Capacity: 2}
		require.NoError(t, repo.SetOccupancy(ctx, occ))
		require.NoError(t, repo.InvalidateOccupancy(ctx, 2, date))

		got, _ := repo.GetOccupancy(ctx, 2, date)
		assert.Nil(t, got)
	})

	t.Run("EntriesExpire", func(t *testing.T) {
		shortRepo := NewMemoryOccupancyRepository(-time.Second)
		occ := &models.DayOccupancy{ResourceID: 3, Date: "2024-06-01", Capacity: 2}
		require.NoError(t, shortRepo.SetOccupancy(ctx, occ))

		got, err := shortRepo.GetOccupancy(ctx, 3, date)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, err := repo.CheckRateLimit(ctx, "client", 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "client", 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "client", 2, time.Hour)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("RateLimitWindowResets", func(t *testing.T) {
		allowed, err := repo.CheckRateLimit(ctx, "bursty", 1, -time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Expired window starts a fresh count.
		allowed, err = repo.CheckRateLimit(ctx, "bursty", 1, -time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

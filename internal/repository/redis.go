package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stolik/internal/config"
	"stolik/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisOccupancyRepository keeps day-occupancy snapshots in Redis so the
// availability read path does not hit SQLite on every request. Entries expire
// on their own; writes from the lifecycle service invalidate them early.
type RedisOccupancyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisOccupancyRepository(client *redis.Client, ttl time.Duration) *RedisOccupancyRepository {
	return &RedisOccupancyRepository{
		client: client,
		ttl:    ttl,
	}
}

func occupancyKey(resourceID int64, date time.Time) string {
	return fmt.Sprintf("occupancy:%d:%s", resourceID, date.Format(models.DateLayout))
}

func (r *RedisOccupancyRepository) GetOccupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, occupancyKey(resourceID, date)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get occupancy from redis: %w", err)
	}

	var occ models.DayOccupancy
	if err := json.Unmarshal([]byte(val), &occ); err != nil {
		return nil, fmt.Errorf("failed to unmarshal occupancy: %w", err)
	}

	return &occ, nil
}

func (r *RedisOccupancyRepository) SetOccupancy(ctx context.Context, occ *models.DayOccupancy) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("failed to marshal occupancy: %w", err)
	}

	key := fmt.Sprintf("occupancy:%d:%s", occ.ResourceID, occ.Date)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set occupancy in redis: %w", err)
	}

	return nil
}

func (r *RedisOccupancyRepository) InvalidateOccupancy(ctx context.Context, resourceID int64, date time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, occupancyKey(resourceID, date)).Err(); err != nil {
		return fmt.Errorf("failed to delete occupancy from redis: %w", err)
	}
	return nil
}

func (r *RedisOccupancyRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	counterKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, counterKey, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"termin/internal/config"
	"termin/internal/schedule"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityCache shares resolved day snapshots across
// processes through redis.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func redisKey(date, barberID string) string {
	return fmt.Sprintf("availability:%s:%s", date, barberID)
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, date, barberID string) (schedule.DayAvailability, bool, error) {
	if c.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	val, err := c.client.Get(ctx, redisKey(date, barberID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get availability from redis: %w", err)
	}

	var day schedule.DayAvailability
	if err := json.Unmarshal([]byte(val), &day); err != nil {
		return nil, false, fmt.Errorf("unmarshal availability: %w", err)
	}
	return day, true, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, date, barberID string, day schedule.DayAvailability) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("marshal availability: %w", err)
	}

	if err := c.client.Set(ctx, redisKey(date, barberID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set availability in redis: %w", err)
	}
	return nil
}

func (c *RedisAvailabilityCache) InvalidateDate(ctx context.Context, date string) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	iter := c.client.Scan(ctx, 0, fmt.Sprintf("availability:%s:*", date), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan availability keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete availability keys: %w", err)
	}
	return nil
}

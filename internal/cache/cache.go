// Package cache wraps a redis client for caching the simulation's outbound
// snapshot and bucket rollups so repeated GET /v1/snapshot reads under load
// don't each recompute percentiles/histograms from scratch.
//
// Grounded on the teacher's internal/services/cache.go (CacheService);
// generalized from DFS lineup/optimization keys to tick-indexed
// matchmaking keys.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func New(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("key not found")
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	val, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache existence: %w", err)
	}
	return val > 0, nil
}

// SetWithRetry retries the set up to maxRetries times with linear backoff,
// logging each failed attempt, and returns the last error if every attempt
// fails. The post-tick snapshot writes in cmd/server and the API handlers
// call Set directly, not this method.
func (c *Cache) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = c.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		c.logger.WithFields(logrus.Fields{"key": key, "attempt": i + 1, "max_retries": maxRetries}).Warn("cache set failed")
		time.Sleep(time.Millisecond * 100 * time.Duration(i+1))
	}
	return err
}

// Flush clears all cache entries.
func (c *Cache) Flush(ctx context.Context) error {
	return c.client.FlushDB(ctx).Err()
}

// Cache key generators, tick-indexed rather than the teacher's
// user/contest-indexed DFS keys.

func SnapshotKey(currentTime int64) string {
	return fmt.Sprintf("snapshot:%d", currentTime)
}

func SnapshotLatestKey() string {
	return "snapshot:latest"
}

func BucketRollupsKey(currentTime int64) string {
	return fmt.Sprintf("bucket_rollups:%d", currentTime)
}

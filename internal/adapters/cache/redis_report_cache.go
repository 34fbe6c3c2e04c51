package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

// RedisReportCache keeps validation reports in Redis with an expiry.
type RedisReportCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ ports.ReportCache = (*RedisReportCache)(nil)

func NewRedisReportCache(client *redis.Client, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{Client: client, TTL: ttl}
}

func (c *RedisReportCache) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "report.cache.redis.Get")(&err)

	b, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get report cache key=%q: %w", key, err)
	}
	return b, true, nil
}

func (c *RedisReportCache) Put(ctx context.Context, key string, report []byte) error {
	if err := c.Client.Set(ctx, key, report, c.TTL).Err(); err != nil {
		return fmt.Errorf("insert report cache key=%q: %w", key, err)
	}
	return nil
}

// Package cache keeps computed ticket stats in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// GlobalScope is the cache scope for unscoped (admin) stats.
const GlobalScope = "all"

// Version identifies a cache generation. Stats computed after a Get must be
// written back with the Version that Get returned, so a mutation landing
// mid-compute cannot be masked by the stale result.
type Version int64

// NoVersion marks a generation that could not be read; Set ignores it.
const NoVersion Version = -1

// StatsCache stores stats per scope until the next ticket mutation.
type StatsCache interface {
	Get(ctx context.Context, scope string) (domain.TicketStats, Version, bool)
	Set(ctx context.Context, scope string, version Version, stats domain.TicketStats)
	Invalidate(ctx context.Context) error
}

// RedisStatsCache versions its keys; Invalidate bumps the version so every
// scope expires at once without a key scan.
type RedisStatsCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRedisStatsCache builds a cache over client.
func NewRedisStatsCache(client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl, prefix: prefix, logger: logger, metrics: metrics}
}

func (c *RedisStatsCache) versionKey() string {
	return c.prefix + ":stats:version"
}

func (c *RedisStatsCache) version(ctx context.Context) (Version, error) {
	version, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return NoVersion, err
	}
	return Version(version), nil
}

func (c *RedisStatsCache) key(version Version, scope string) string {
	return fmt.Sprintf("%s:stats:v%d:%s", c.prefix, version, scope)
}

func (c *RedisStatsCache) Get(ctx context.Context, scope string) (domain.TicketStats, Version, bool) {
	var stats domain.TicketStats
	version, err := c.version(ctx)
	if err != nil {
		c.lookupFailed(scope, err)
		return stats, NoVersion, false
	}
	raw, err := c.client.Get(ctx, c.key(version, scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.RecordCacheLookup("miss")
		return stats, version, false
	}
	if err != nil {
		c.lookupFailed(scope, err)
		return stats, version, false
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.lookupFailed(scope, err)
		return stats, version, false
	}
	c.metrics.RecordCacheLookup("hit")
	return stats, version, true
}

// Set stores stats under the generation they were computed against. If an
// Invalidate has since bumped the generation, the entry is written to a key
// no reader will look up and simply expires.
func (c *RedisStatsCache) Set(ctx context.Context, scope string, version Version, stats domain.TicketStats) {
	if c.ttl <= 0 || version == NoVersion {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(version, scope), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.String("scope", scope), zap.Error(err))
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.versionKey()).Err()
}

func (c *RedisStatsCache) lookupFailed(scope string, err error) {
	c.metrics.RecordCacheLookup("error")
	c.logger.Warn("stats cache read failed", zap.String("scope", scope), zap.Error(err))
}

// NoopStatsCache never caches.
type NoopStatsCache struct{}

func (NoopStatsCache) Get(context.Context, string) (domain.TicketStats, Version, bool) {
	return domain.TicketStats{}, NoVersion, false
}

func (NoopStatsCache) Set(context.Context, string, Version, domain.TicketStats) {}

func (NoopStatsCache) Invalidate(context.Context) error { return nil }

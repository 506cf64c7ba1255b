package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

func TestRedisStatsCacheDegradesToMissWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisStatsCache(client, "test", time.Minute, zap.NewNop(), observability.NewMetrics("test"))
	ctx := context.Background()

	_, version, ok := c.Get(ctx, GlobalScope)
	assert.False(t, ok)
	assert.Equal(t, NoVersion, version)
	c.Set(ctx, GlobalScope, version, domain.TicketStats{Total: 3})
	assert.Error(t, c.Invalidate(ctx))
}

func TestNoopStatsCache(t *testing.T) {
	var c StatsCache = NoopStatsCache{}
	c.Set(context.Background(), "u1", 0, domain.TicketStats{Total: 1})
	_, _, ok := c.Get(context.Background(), "u1")
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(context.Background()))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, time.Minute, cfg.Redis.StatsTTL())
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "helpdesk", cfg.Logger.Service)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("REDIS_STATS_TTL_SECONDS", "5")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, 5*time.Second, cfg.Redis.StatsTTL())
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}

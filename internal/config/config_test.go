package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, LockMemory, cfg.LockBackend)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_DSN")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "secret")

	t.Run("lock backend", func(t *testing.T) {
		t.Setenv("LOCK_BACKEND", "etcd")
		_, err := Load()
		assert.ErrorContains(t, err, "LOCK_BACKEND")
	})

	t.Run("lock ttl", func(t *testing.T) {
		t.Setenv("LOCK_TTL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "LOCK_TTL")
	})

	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "zero")
		_, err := Load()
		assert.ErrorContains(t, err, "REDIS_DB")
	})
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, "memory", cfg.IdempotencyBackend)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.False(t, cfg.DebugEndpoints)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("UPSTREAM_TIMEOUT", "3")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DEBUG_ENDPOINTS", "true")
	t.Setenv("DB_PORT", "6543")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.DebugEndpoints)
	assert.Equal(t, 6543, cfg.Postgres.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"SESSION_BACKEND":     "mongo",
		"IDEMPOTENCY_BACKEND": "postgres",
		"UPSTREAM_TIMEOUT":    "soon",
		"SESSION_MAX":         "many",
		"DEBUG_ENDPOINTS":     "maybe",
		"DB_PORT":             "pg",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := loadConfig()
			assert.Error(t, err)
		})
	}
}

func TestConfigWarnings(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.warnings(), 3)

	t.Setenv("SHOPIFY_SHOP", "demo.myshopify.com")
	t.Setenv("SHOPIFY_ADMIN_API_ACCESS_TOKEN", "shpat_x")
	t.Setenv("PAYPAL_CLIENT_ID", "id")
	t.Setenv("PAYPAL_CLIENT_SECRET", "secret")
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.warnings())
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "storefront")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PAYMENT_SECRET_KEY", "sk_test")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.App.Port)
	assert.Equal(t, 15*time.Second, cfg.App.ShutdownTimeout)
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.Equal(t, 60, cfg.JWT.AccessTTLMin)
	assert.Equal(t, "uah", cfg.Payment.Currency)
	assert.Equal(t, 5*time.Minute, cfg.Payment.SignatureTolerance)
	assert.False(t, cfg.Payment.CancelOrderOnExpiry)
	assert.Equal(t, "order.paid", cfg.RabbitMQ.Queue)
	assert.EqualValues(t, 3, cfg.RabbitMQ.PublishAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Webhook.DedupeTTL)
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Cache.MethodSet())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_CURRENCY", "usd")
	t.Setenv("PAYMENT_CANCEL_ORDER_ON_EXPIRY", "true")
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.True(t, cfg.Payment.CancelOrderOnExpiry)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.MethodSet())
	assert.Equal(t, 10, cfg.RateLimit.Capacity)
	assert.Equal(t, 1, cfg.RateLimit.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.TTL)
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("PAYMENT_WEBHOOK_SECRET"))

	_, err := Load()
	assert.Error(t, err)
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "localhost:6379", Redis{Addr: "localhost:6379"}.Address())
	assert.Equal(t, "cache:6380", Redis{Host: "cache", Port: "6380", Addr: "localhost:6379"}.Address())
	assert.Equal(t, "localhost:6379", Redis{Host: "cache", Addr: "localhost:6379"}.Address())
}

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: 0, Burst: -1}
	c.normalize()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, time.Second, c.RefillInterval)
	assert.Equal(t, 5*time.Second, c.TTL)
}

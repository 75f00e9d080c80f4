package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Burst and RefillEvery
// are shorthands that override Capacity and RefillTokens/RefillInterval.
type RateLimitConfig struct {
    Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
    Capacity       int           `env:"RATE_LIMIT_CAPACITY" env-default:"60"`
    RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
    RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"1s"`
    TTL            time.Duration `env:"RATE_LIMIT_TTL" env-default:"10m"`
    KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" env-default:"ip_user_route"`
    Prefix         string        `env:"RATE_LIMIT_PREFIX" env-default:"rl"`
    Debug          bool          `env:"RATE_LIMIT_DEBUG" env-default:"false"`
    Burst          int           `env:"RATE_LIMIT_BURST" env-default:"-1"`
    RefillEvery    time.Duration `env:"RATE_LIMIT_REFILL_EVERY" env-default:"0s"`
}

func (c *RateLimitConfig) normalize() {
    if c.Burst > 0 { c.Capacity = c.Burst }
    if c.RefillEvery > 0 {
        c.RefillTokens = 1
        c.RefillInterval = c.RefillEvery
    }
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    minTTL := 5 * c.RefillInterval
    if c.TTL < minTTL { c.TTL = minTTL }
}

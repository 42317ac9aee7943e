package config

import (
	"strings"
	"time"
)

// RateLimitConfig tunes the token bucket the gateway applies before
// proxying.  A bucket holds Capacity tokens and gains RefillTokens every
// RefillInterval; idle buckets expire after TTL.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip, user, route, ip_user, ip_route, user_route or ip_user_route
	Prefix         string
	Debug          bool // adds X-RateLimit-* headers to every response
}

var rateKeyStrategies = map[string]bool{
	"ip": true, "user": true, "route": true,
	"ip_user": true, "ip_route": true, "user_route": true, "ip_user_route": true,
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST is
// accepted as an alias of RATE_LIMIT_CAPACITY.  Out-of-range values are
// clamped rather than rejected so a typo never takes the gateway down.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", envInt("RATE_LIMIT_BURST", 60)),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route")),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:gateway"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if !rateKeyStrategies[cfg.KeyStrategy] {
		cfg.KeyStrategy = "ip_user_route"
	}
	cfg.Capacity = max(cfg.Capacity, 1)
	cfg.RefillTokens = max(cfg.RefillTokens, 1)
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	// A bucket must outlive a few refills or it would reset to full.
	cfg.TTL = max(cfg.TTL, 5*cfg.RefillInterval)
	return cfg
}

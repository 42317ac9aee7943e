package config

import "time"

// CacheConfig defines settings for the catalog response cache.  When
// Enabled is false or no Redis client is configured, caching is disabled.
// Methods lists the HTTP methods to cache.  TTL defines the lifetime of
// cache entries; catalog data is read-mostly so the default is generous.
// KeyStrategy determines which parts of the request contribute to the key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", time.Minute),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "catalog:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
	}
}

// IdempotencyConfig controls replay of POST responses keyed by the
// client-supplied Idempotency-Key header.
type IdempotencyConfig struct {
	Enabled      bool
	TTL          time.Duration // how long a completed response is replayed
	InFlightTTL  time.Duration // how long an unfinished attempt blocks retries
	Prefix       string
	MaxBodyBytes int
}

// LoadIdempotencyConfig reads IDEMPOTENCY_* variables.  The prefix is
// namespaced by service so two services never share keys.
func LoadIdempotencyConfig(service string) IdempotencyConfig {
	return IdempotencyConfig{
		Enabled:      envBool("IDEMPOTENCY_ENABLED", true),
		TTL:          envDur("IDEMPOTENCY_TTL", 24*time.Hour),
		InFlightTTL:  envDur("IDEMPOTENCY_INFLIGHT_TTL", 30*time.Second),
		Prefix:       envStr("IDEMPOTENCY_PREFIX", "idem:"+service),
		MaxBodyBytes: envInt("IDEMPOTENCY_MAX_BODY_BYTES", 65536),
	}
}

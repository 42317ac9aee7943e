package config

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOptions reads REDIS_ADDR (or REDIS_HOST plus REDIS_PORT, which win
// when both are set), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func redisOptions() *redis.Options {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects to Redis and pings it once.  Redis only backs
// optional features (gateway rate limit, catalog cache, idempotency keys),
// so an unreachable server yields nil and those features pass through.
func NewRedisClient() *redis.Client {
	opts := redisOptions()
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, continuing without it", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

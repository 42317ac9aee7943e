package middleware

import (
    "context"
    "crypto/sha1"
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/service-marketplace/internal/config"
)

// cacheKeyFrom builds a stable cache key honoring prefix/strategy.  Catalog
// reads are public, so the caller is never part of the key.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", r.URL.Path}
    case "method_route":
        parts = []string{"method", r.Method, "route", r.URL.Path}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", r.URL.Path, "q", r.URL.RawQuery}
    default: // "route_query"
        parts = []string{"route", r.URL.Path, "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache caches successful responses of the configured methods with
// their headers, so a HIT is byte-identical to the original.  Responses
// larger than MaxBodyBytes are served but not stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    replay(c.Response(), status, hdr, body, "X-Cache", "HIT")
                    return nil
                }
            }

            cw := newCaptureWriter(c.Response().Writer, cfg.MaxBodyBytes)
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated() {
                return nil
            }
            payload, err := encodePayload(cw.status, cloneHeader(c.Response().Header()), cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                slog.Warn("cache: store failed", "key", key, "error", err)
            }
            return nil
        }
    }
}

// InvalidateCache drops every entry under the cache prefix.  Catalog writes
// call it so a new category or service is visible before the TTL runs out.
func InvalidateCache(ctx context.Context, cfg config.CacheConfig, rdb *redis.Client) {
    if rdb == nil {
        return
    }
    iter := rdb.Scan(ctx, 0, cfg.Prefix+":*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        slog.Warn("cache: scan failed", "prefix", cfg.Prefix, "error", err)
        return
    }
    if len(keys) > 0 {
        if err := rdb.Del(ctx, keys...).Err(); err != nil {
            slog.Warn("cache: invalidate failed", "prefix", cfg.Prefix, "error", err)
        }
    }
}

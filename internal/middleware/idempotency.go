package middleware

import (
    "context"
    "crypto/sha1"
    "fmt"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/service-marketplace/internal/apperr"
    "github.com/iliyamo/service-marketplace/internal/config"
)

// HeaderIdempotencyKey is the client-generated key of a retriable POST.
const HeaderIdempotencyKey = "Idempotency-Key"

const inFlight = "in-flight"

// Idempotency replays the first response of a POST that carries an
// Idempotency-Key header.  Keys are scoped to the caller.  While the first
// attempt runs, a retry with the same key answers 409 IdempotencyConflict.
// Server errors are not stored so the client can retry them.  Requests
// without the header, and every request when Redis is absent, pass through.
func Idempotency(cfg config.IdempotencyConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Request().Header.Get(HeaderIdempotencyKey)
            if raw == "" || c.Request().Method != http.MethodPost {
                return next(c)
            }
            ctx := c.Request().Context()
            key := idempotencyKey(cfg.Prefix, userID(c), c.Request().URL.Path, raw)

            claimed, err := rdb.SetNX(ctx, key, inFlight, cfg.InFlightTTL).Result()
            if err != nil {
                slog.Warn("idempotency: redis error, executing without replay", "error", err)
                return next(c)
            }
            if !claimed {
                bs, err := rdb.Get(ctx, key).Bytes()
                if err == nil && string(bs) != inFlight {
                    if status, hdr, body, ok := decodePayload(bs); ok {
                        replay(c.Response(), status, hdr, body, "Idempotent-Replayed", "true")
                        return nil
                    }
                }
                return apperr.Conflict(http.StatusConflict, apperr.CodeIdempotencyConflict,
                    "a request with this Idempotency-Key is still being processed")
            }

            cw := newCaptureWriter(c.Response().Writer, cfg.MaxBodyBytes)
            c.Response().Writer = cw
            if err := next(c); err != nil {
                // Render now so the error body is what gets stored.
                c.Error(err)
            }

            bg := context.WithoutCancel(ctx)
            if cw.status >= 500 || cw.truncated() {
                _ = rdb.Del(bg, key).Err()
                return nil
            }
            payload, err := encodePayload(cw.status, cloneHeader(c.Response().Header()), cw.buf.Bytes())
            if err == nil {
                err = rdb.Set(bg, key, payload, cfg.TTL).Err()
            }
            if err != nil {
                slog.Warn("idempotency: store failed", "key", key, "error", err)
                _ = rdb.Del(bg, key).Err()
            }
            return nil
        }
    }
}

func idempotencyKey(prefix, caller, path, raw string) string {
    sum := sha1.Sum([]byte(caller + "\x00" + path + "\x00" + raw))
    return fmt.Sprintf("%s:%x", prefix, sum[:])
}

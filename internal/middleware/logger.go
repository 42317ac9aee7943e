package middleware

import (
    "context"
    "log/slog"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger emits one slog record per request.  Client errors log at
// Info, server errors at Error.
func RequestLogger(service string) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            level := slog.LevelInfo
            if v.Status >= 500 {
                level = slog.LevelError
            }
            attrs := []slog.Attr{
                slog.String("service", service),
                slog.String("method", v.Method),
                slog.String("uri", v.URI),
                slog.Int("status", v.Status),
                slog.Duration("latency", v.Latency),
                slog.String("request_id", v.RequestID),
                slog.String("remote_ip", v.RemoteIP),
                slog.String("identity", userID(c)),
            }
            if v.Error != nil {
                attrs = append(attrs, slog.String("error", v.Error.Error()))
            }
            slog.LogAttrs(context.Background(), level, "request", attrs...)
            return nil
        },
    })
}

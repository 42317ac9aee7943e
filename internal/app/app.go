// Package app holds the start-up and shutdown steps shared by every
// binary under cmd/.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Init installs the JSON slog handler, loads .env and returns a metrics
// registry carrying the Go runtime and domain collectors.
func Init(name string) *prometheus.Registry {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With("service", name))
	config.LoadDotEnv()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	service.RegisterMetrics(reg)
	return reg
}

// OpenDB connects to the service database and applies its schema when
// DB_MIGRATE is on.  Failure ends the process.
func OpenDB(cfg config.Config, schema []string) *sql.DB {
	db, err := database.Open(cfg.DB)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	if cfg.DB.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db, schema); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}
	return db
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Serve runs e until ctx is cancelled, then drains in-flight requests and
// runs the cleanup hooks in order.
func Serve(ctx context.Context, e *echo.Echo, cfg config.Config, cleanup ...func()) {
	addr := ":" + cfg.Port
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		slog.Warn("shutdown", "error", err)
	}
	for _, fn := range cleanup {
		fn()
	}
}

package main // gateway: the single public entry point of the marketplace

import (
	"log/slog"
	"os"

	"github.com/iliyamo/service-marketplace/internal/app"
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/gateway"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/router"
)

func main() {
	reg := app.Init("gateway")
	cfg := config.LoadGateway()

	table, err := gateway.NewTable(gateway.DefaultRoutes(cfg.Peers))
	if err != nil {
		slog.Error("invalid route table", "error", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient() // nil disables rate limiting
	e := router.NewServer(cfg.Service, reg)
	gateway.New(table, cfg.JWTSecret, cfg.PeerTimeout).
		Register(e, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, nil))

	ctx, stop := app.SignalContext()
	defer stop()
	app.Serve(ctx, e, cfg, func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	})
}

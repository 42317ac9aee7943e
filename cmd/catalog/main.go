package main // catalog: categories and the services offered under them

import (
	"context"

	"github.com/iliyamo/service-marketplace/internal/app"
	"github.com/iliyamo/service-marketplace/internal/client"
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
)

func main() {
	reg := app.Init("catalog")
	cfg := config.Load("catalog")
	db := app.OpenDB(cfg, database.CatalogSchema)
	rdb := config.NewRedisClient()
	cache := config.LoadCacheConfig()

	svc := service.NewCatalogService(
		repository.NewCatalogRepo(db),
		client.NewProviderClient(cfg.Peers.Provider, cfg.PeerTimeout),
	)
	// Writes drop every cached read.
	svc.OnChange = func(ctx context.Context) { middleware.InvalidateCache(ctx, cache, rdb) }

	e := router.NewServer(cfg.Service, reg)
	router.RegisterCatalog(e, handler.NewCatalogHandler(svc), cfg.JWTSecret, cache, rdb)

	ctx, stop := app.SignalContext()
	defer stop()
	app.Serve(ctx, e, cfg, func() {
		_ = db.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	})
}

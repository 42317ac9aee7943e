package main // provider: the registry of provider profiles

import (
	"github.com/iliyamo/service-marketplace/internal/app"
	"github.com/iliyamo/service-marketplace/internal/client"
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
)

func main() {
	reg := app.Init("provider")
	cfg := config.Load("provider")
	db := app.OpenDB(cfg, database.ProviderSchema)

	svc := service.NewProviderService(
		repository.NewProviderRepo(db),
		client.NewCatalogClient(cfg.Peers.Catalog, cfg.PeerTimeout),
	)

	e := router.NewServer(cfg.Service, reg)
	router.RegisterProvider(e, handler.NewProviderHandler(svc), cfg.JWTSecret)

	ctx, stop := app.SignalContext()
	defer stop()
	app.Serve(ctx, e, cfg, func() { _ = db.Close() })
}

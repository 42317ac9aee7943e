package main // identity: registration, login and credential verification

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
	reg := app.Init("identity")
	cfg := config.Load("identity")
	db := app.OpenDB(cfg, database.IdentitySchema)

	svc := service.NewIdentityService(service.IdentityConfig{
		Secret:          cfg.JWTSecret,
		BcryptCost:      cfg.BcryptCost,
		CredentialTTL:   cfg.CredentialTTL,
		ProvisioningTTL: cfg.ProvisioningTTL,
	},
		repository.NewUserRepo(db),
		client.NewCatalogClient(cfg.Peers.Catalog, cfg.PeerTimeout),
		client.NewProviderClient(cfg.Peers.Provider, cfg.PeerTimeout),
	)

	e := router.NewServer(cfg.Service, reg)
	router.RegisterIdentity(e, handler.NewIdentityHandler(svc), cfg.JWTSecret)

	ctx, stop := app.SignalContext()
	defer stop()
	app.Serve(ctx, e, cfg, func() { _ = db.Close() })
}

package main // demand: the demand lifecycle and location negotiation

import (
	"log/slog"

	"github.com/iliyamo/service-marketplace/internal/app"
	"github.com/iliyamo/service-marketplace/internal/client"
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
)

func main() {
	reg := app.Init("demand")
	cfg := config.Load("demand")
	db := app.OpenDB(cfg, database.DemandSchema)
	rdb := config.NewRedisClient()

	var (
		seeder    service.ConversationSeeder
		publisher *queue.Publisher
	)
	if cfg.SeedTransport == "amqp" && cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL)
		seeder = service.BrokerSeeder{Publisher: publisher}
	} else {
		seeder = service.HTTPSeeder{Client: client.NewMessageClient(cfg.Peers.Message, cfg.PeerTimeout)}
	}
	slog.Info("conversation seeding", "transport", cfg.SeedTransport)

	svc := service.NewDemandService(
		repository.NewDemandRepo(db),
		client.NewProviderClient(cfg.Peers.Provider, cfg.PeerTimeout),
		seeder,
	)
	svc.SeedTimeout = cfg.PeerTimeout

	e := router.NewServer(cfg.Service, reg)
	router.RegisterDemand(e, handler.NewDemandHandler(svc), cfg.JWTSecret, config.LoadIdempotencyConfig(cfg.Service), rdb)

	ctx, stop := app.SignalContext()
	defer stop()
	app.Serve(ctx, e, cfg, func() {
		svc.WaitSeeding()
		if publisher != nil {
			_ = publisher.Close()
		}
		_ = db.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	})
}

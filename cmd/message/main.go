package main // message: conversations attached to demands

import (
	"context"
	"errors"
	"log/slog"
	"sync"

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
	reg := app.Init("message")
	cfg := config.Load("message")
	db := app.OpenDB(cfg, database.MessageSchema)
	rdb := config.NewRedisClient()

	svc := service.NewMessageService(
		repository.NewMessageRepo(db),
		client.NewDemandClient(cfg.Peers.Demand, cfg.PeerTimeout),
	)

	e := router.NewServer(cfg.Service, reg)
	router.RegisterMessage(e, handler.NewMessageHandler(svc), cfg.JWTSecret, config.LoadIdempotencyConfig(cfg.Service), rdb)

	ctx, stop := app.SignalContext()
	defer stop()

	// The HTTP seeding path stays mounted either way; the consumer only
	// runs when a broker is configured.
	var consumers sync.WaitGroup
	if cfg.RabbitMQURL != "" {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			err := queue.ConsumeDemandAccepted(ctx, cfg.RabbitMQURL, svc.SeedFromEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("demand.accepted consumer stopped", "error", err)
			}
		}()
	}

	app.Serve(ctx, e, cfg, func() {
		consumers.Wait()
		_ = db.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	})
}

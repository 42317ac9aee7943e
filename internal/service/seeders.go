package service

import (
	"context"
	"time"

	"github.com/iliyamo/service-marketplace/internal/client"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/queue"
)

// BrokerSeeder announces accepted demands on RabbitMQ; the messaging
// service consumes the event and seeds the thread.
type BrokerSeeder struct {
	Publisher interface {
		PublishDemandAccepted(ctx context.Context, ev queue.DemandAcceptedEvent) error
	}
}

func (s BrokerSeeder) SeedConversation(ctx context.Context, _ model.Caller, d model.Demand, text string) error {
	return s.Publisher.PublishDemandAccepted(ctx, queue.DemandAcceptedEvent{
		DemandID:           d.ID,
		ClientIdentityID:   d.ClientIdentityID,
		ProviderIdentityID: d.ProviderIdentityID,
		ServiceID:          d.ServiceID,
		SeedText:           text,
		AcceptedAt:         d.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// HTTPSeeder calls POST /messages/init with the provider's credential.
type HTTPSeeder struct {
	Client *client.MessageClient
}

func (s HTTPSeeder) SeedConversation(ctx context.Context, caller model.Caller, d model.Demand, text string) error {
	return s.Client.InitConversation(ctx, caller.Credential, client.InitRequest{
		DemandID: d.ID,
		ClientID: d.ClientIdentityID,
		Content:  text,
	})
}

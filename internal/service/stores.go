// Package service holds the business rules of every marketplace service.
// Persistence and sibling services are reached through the interfaces
// below; the MySQL repositories and the HTTP peer clients implement them.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// IdentityStore is implemented by repository.UserRepo.
type IdentityStore interface {
	Create(ctx context.Context, u *model.Identity) error
	GetByEmail(ctx context.Context, email string) (model.Identity, error)
	GetByID(ctx context.Context, id string) (model.Identity, error)
	Delete(ctx context.Context, id string) error
}

// CatalogStore is implemented by repository.CatalogRepo.
type CatalogStore interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id string) (model.Category, error)
	CreateService(ctx context.Context, s *model.Service) error
	ListServices(ctx context.Context, categoryID string) ([]model.Service, error)
	GetServiceDetail(ctx context.Context, id string) (model.ServiceDetail, error)
}

// ProfileStore is implemented by repository.ProviderRepo.
type ProfileStore interface {
	Create(ctx context.Context, p *model.ProviderProfile) error
	GetByID(ctx context.Context, id string) (model.ProviderProfile, error)
	GetByIdentity(ctx context.Context, identityID string) (model.ProviderProfile, error)
	List(ctx context.Context, f model.ProviderFilter) ([]model.ProviderProfile, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	SetAvailability(ctx context.Context, identityID string, available bool) error
}

// DemandStore is implemented by repository.DemandRepo.  UpdateStatus and
// SaveLocation are conditional and return repository.ErrConflict when the
// row moved on.
type DemandStore interface {
	Create(ctx context.Context, d *model.Demand) error
	GetByID(ctx context.Context, id string) (model.Demand, error)
	ListByParticipant(ctx context.Context, identityID string, page model.Page) ([]model.Demand, error)
	UpdateStatus(ctx context.Context, id string, from, to model.DemandStatus) error
	SaveLocation(ctx context.Context, id string, version int, loc model.Location, appointment *time.Time) error
}

// MessageStore is implemented by repository.MessageRepo.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	CreateSeed(ctx context.Context, m *model.Message) (bool, error)
	CountByDemand(ctx context.Context, demandID string) (int, error)
	ListByDemand(ctx context.Context, demandID string, page model.Page) ([]model.Message, error)
	MarkRead(ctx context.Context, demandID, identityID string) (int64, error)
	Conversations(ctx context.Context, identityID string) ([]model.ConversationSummary, error)
}

// ServiceCatalog is the catalog's integrity oracle as seen by peers.
type ServiceCatalog interface {
	GetService(ctx context.Context, serviceID string) (model.ServiceDetail, error)
}

// ProviderRegistry is the provider service as seen by peers.
type ProviderRegistry interface {
	CreateProfile(ctx context.Context, credential string, in model.ProfileInput) (model.ProviderProfile, error)
	GetProfile(ctx context.Context, profileID string) (model.ProviderProfile, error)
	ListByService(ctx context.Context, serviceID string) ([]model.ProviderProfile, error)
}

// DemandResolver is the demand service as seen by messaging.
type DemandResolver interface {
	Get(ctx context.Context, credential, demandID string) (model.Demand, error)
}

// ConversationSeeder opens the message thread of an accepted demand.  The
// caller is the provider who accepted it.
type ConversationSeeder interface {
	SeedConversation(ctx context.Context, caller model.Caller, d model.Demand, text string) error
}

package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// CatalogService owns categories and services.
type CatalogService struct {
	store    CatalogStore
	registry ProviderRegistry
	// OnChange runs after every successful write.  The catalog binary uses
	// it to drop the response cache.
	OnChange func(ctx context.Context)
}

func NewCatalogService(store CatalogStore, registry ProviderRegistry) *CatalogService {
	return &CatalogService{store: store, registry: registry}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	out, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *CatalogService) ListServices(ctx context.Context, categoryID string) ([]model.Service, error) {
	out, err := s.store.ListServices(ctx, categoryID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// GetService returns a service with the category it belongs to.  Peers
// call it to validate a service/category pairing.
func (s *CatalogService) GetService(ctx context.Context, id string) (model.ServiceDetail, error) {
	d, err := s.store.GetServiceDetail(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ServiceDetail{}, apperr.NotFound("service %s not found", id)
	}
	if err != nil {
		return model.ServiceDetail{}, apperr.Internal(err)
	}
	return d, nil
}

// GetServiceWithProviders merges the provider registry listing into the
// service detail.  An unreachable registry yields an empty list.
func (s *CatalogService) GetServiceWithProviders(ctx context.Context, id string) (model.ServiceWithProviders, error) {
	d, err := s.GetService(ctx, id)
	if err != nil {
		return model.ServiceWithProviders{}, err
	}
	out := model.ServiceWithProviders{Service: d.Service, Category: d.Category, Providers: []model.ProviderProfile{}}
	providers, err := s.registry.ListByService(ctx, id)
	switch {
	case err == nil:
		out.Providers = providers
	case CatalogProviderListing.Tolerate(err, "service_id", id):
	default:
		return model.ServiceWithProviders{}, err
	}
	return out, nil
}

// CreateCategory adds a category.  Names are unique.
func (s *CatalogService) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Category{}, apperr.Validation(apperr.CodeValidation, "name is required")
	}
	c.ID = uuid.NewString()
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Category{}, apperr.Conflict(http.StatusBadRequest, apperr.CodeAlreadyExists, "category %q already exists", c.Name)
		}
		return model.Category{}, apperr.Internal(err)
	}
	s.changed(ctx)
	return c, nil
}

// CreateService adds a service to an existing category.
func (s *CatalogService) CreateService(ctx context.Context, svc model.Service) (model.Service, error) {
	svc.Name = strings.TrimSpace(svc.Name)
	if svc.Name == "" || svc.CategoryID == "" {
		return model.Service{}, apperr.Validation(apperr.CodeValidation, "name and categoryId are required")
	}
	if svc.PriceCents < 0 {
		return model.Service{}, apperr.Validation(apperr.CodeValidation, "price must not be negative")
	}
	if _, err := s.store.GetCategory(ctx, svc.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Service{}, apperr.Validation(apperr.CodeValidation, "category %s does not exist", svc.CategoryID)
		}
		return model.Service{}, apperr.Internal(err)
	}
	svc.ID = uuid.NewString()
	if err := s.store.CreateService(ctx, &svc); err != nil {
		return model.Service{}, apperr.Internal(err)
	}
	s.changed(ctx)
	return svc, nil
}

func (s *CatalogService) changed(ctx context.Context) {
	if s.OnChange != nil {
		s.OnChange(context.WithoutCancel(ctx))
	}
}

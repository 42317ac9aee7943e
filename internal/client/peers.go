package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// CatalogClient reads the catalog's integrity oracle.
type CatalogClient struct{ base }

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{newBase("catalog", baseURL, timeout)}
}

// GetService returns a service and the category it belongs to.
func (c *CatalogClient) GetService(ctx context.Context, serviceID string) (model.ServiceDetail, error) {
	var out model.ServiceDetail
	err := c.do(ctx, http.MethodGet, "/services/"+url.PathEscape(serviceID), "", nil, &out)
	return out, err
}

// ProviderClient talks to the provider registry.
type ProviderClient struct{ base }

func NewProviderClient(baseURL string, timeout time.Duration) *ProviderClient {
	return &ProviderClient{newBase("provider", baseURL, timeout)}
}

// CreateProfile creates the profile of the identity the credential names.
func (c *ProviderClient) CreateProfile(ctx context.Context, credential string, in model.ProfileInput) (model.ProviderProfile, error) {
	var out model.ProviderProfile
	err := c.do(ctx, http.MethodPost, "/providers", credential, in, &out)
	return out, err
}

// GetProfile fetches a profile by its id.
func (c *ProviderClient) GetProfile(ctx context.Context, profileID string) (model.ProviderProfile, error) {
	var out model.ProviderProfile
	err := c.do(ctx, http.MethodGet, "/providers/"+url.PathEscape(profileID), "", nil, &out)
	return out, err
}

// ListByService lists the profiles offering a service.
func (c *ProviderClient) ListByService(ctx context.Context, serviceID string) ([]model.ProviderProfile, error) {
	out := []model.ProviderProfile{}
	err := c.do(ctx, http.MethodGet, "/providers/by-service/"+url.PathEscape(serviceID), "", nil, &out)
	return out, err
}

// DemandClient resolves demands for the messaging service.
type DemandClient struct{ base }

func NewDemandClient(baseURL string, timeout time.Duration) *DemandClient {
	return &DemandClient{newBase("demand", baseURL, timeout)}
}

// Get fetches a demand as the credential holder sees it.  The demand
// service answers 403 when the holder is not a participant.
func (c *DemandClient) Get(ctx context.Context, credential, demandID string) (model.Demand, error) {
	var out model.Demand
	err := c.do(ctx, http.MethodGet, "/demands/"+url.PathEscape(demandID), credential, nil, &out)
	return out, err
}

// MessageClient seeds conversations over HTTP when no broker is configured.
type MessageClient struct{ base }

func NewMessageClient(baseURL string, timeout time.Duration) *MessageClient {
	return &MessageClient{newBase("message", baseURL, timeout)}
}

// InitRequest is the body of POST /messages/init.
type InitRequest struct {
	DemandID string `json:"demandId"`
	ClientID string `json:"clientId"`
	Content  string `json:"content"`
}

// InitConversation asks the messaging service to seed a thread.  The call
// is made with the provider's credential.
func (c *MessageClient) InitConversation(ctx context.Context, credential string, in InitRequest) error {
	return c.do(ctx, http.MethodPost, "/messages/init", credential, in, nil)
}

package model

import "time"

// Category groups services (e.g. plumbing, cleaning).  Rows live in the
// `categories` table owned by the catalog service.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Service is a bookable offering.  It belongs to exactly one category.
// PriceCents is an indicative price; demands do not carry a price.
type Service struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	Icon        string    `json:"icon"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ServiceDetail is the integrity oracle answer for a service id: the
// service and the category it actually belongs to.
type ServiceDetail struct {
	Service  Service  `json:"service"`
	Category Category `json:"category"`
}

// BelongsTo reports whether the service is filed under categoryID.
func (d ServiceDetail) BelongsTo(categoryID string) bool {
	return categoryID != "" && d.Service.CategoryID == categoryID && d.Category.ID == categoryID
}

// ServiceWithProviders is returned by the with-providers catalog read.
type ServiceWithProviders struct {
	Service   Service           `json:"service"`
	Category  Category          `json:"category"`
	Providers []ProviderProfile `json:"providers"`
}

package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
)

// ProviderProfile is the marketplace-facing profile of a provider
// identity.  It is keyed 1:1 to IdentityID and lives in the provider
// registry's `provider_profiles` table.
//
// Fields:
//  ID               – opaque UUID; this is what clients see and send.
//  IdentityID       – owning identity (role provider), unique.
//  DisplayName      – copied from registration for listing screens.
//  CategoryID       – category of the offered service.
//  ServiceID        – offered service; must belong to CategoryID.
//  ExperienceYears  – years of experience, >= 0.
//  City             – city served.
//  ProfileImage     – URL on the external media host (optional).
//  CertificateImage – URL on the external media host (optional).
//  Available        – toggled by the owning provider.
//  Verified         – set by an administrator.
type ProviderProfile struct {
	ID               string    `json:"id"`
	IdentityID       string    `json:"identityId"`
	DisplayName      string    `json:"name"`
	CategoryID       string    `json:"categoryId"`
	ServiceID        string    `json:"serviceId"`
	ExperienceYears  int       `json:"experience"`
	City             string    `json:"city"`
	ProfileImage     string    `json:"profileImage,omitempty"`
	CertificateImage string    `json:"certificateImage,omitempty"`
	Available        bool      `json:"availability"`
	Verified         bool      `json:"verified"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ProfileInput is the payload accepted by the provider registry when a
// profile is created, both directly and from the registration saga.
type ProfileInput struct {
	DisplayName      string `json:"name"`
	CategoryID       string `json:"category"`
	ServiceID        string `json:"service"`
	ExperienceYears  Years  `json:"experience"`
	City             string `json:"city"`
	ProfileImage     string `json:"profileImage"`
	CertificateImage string `json:"certificateImage"`
}

// ProviderFilter narrows a profile listing.  Empty fields do not filter.
type ProviderFilter struct {
	ServiceID  string
	CategoryID string
	City       string
	Available  *bool
}

// Years is a count of years that binds from a JSON number or a numeric
// string, since registration forms post "experience" as text.  An empty
// string is zero.  The sign is kept; callers reject negatives.
type Years int

func (y *Years) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*y = Years(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.NotValidf("years %s", b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.NotValidf("years %q", s)
	}
	*y = Years(n)
	return nil
}

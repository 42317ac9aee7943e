package model

import (
	"strings"
	"time"
)

// Role is the authorization role carried in every credential.  A role is
// fixed when the identity is created; there is no promotion flow.
type Role string

const (
	RoleClient   Role = "client"   // requests services
	RoleProvider Role = "provider" // fulfils demands; always has a ProviderProfile
	RoleAdmin    Role = "admin"    // verifies providers and curates the catalog
)

// ParseRole normalises a role string.  "prestataire" is accepted as an
// alias of provider because older clients still send it.  The second
// return value is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client", "":
		return RoleClient, true
	case "provider", "prestataire":
		return RoleProvider, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Identity represents an account record as stored in the `identities`
// table owned by the identity service.  Every other service refers to an
// identity by ID only; the record itself never leaves the identity store
// except as an IdentitySummary.
//
// Fields:
//  ID           – opaque UUID, the subject of every credential.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash; the plaintext is never stored.
//  Role         – client, provider or admin.
//  DisplayName  – name shown to the other party of a demand.
//  City         – free-text city.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	DisplayName  string
	City         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentitySummary is the public projection of an Identity.
type IdentitySummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	DisplayName string `json:"name"`
	City        string `json:"city"`
}

// Summary strips the credential hash and timestamps.
func (i Identity) Summary() IdentitySummary {
	return IdentitySummary{ID: i.ID, Email: i.Email, Role: i.Role, DisplayName: i.DisplayName, City: i.City}
}

// Caller is the verified identity behind a request.  It is built from a
// credential whose signature has been checked by the receiving service, so
// handlers can rely on it without re-reading headers.  Credential holds the
// raw bearer token so it can be re-presented to sibling services
// unchanged.
type Caller struct {
	ID         string
	Role       Role
	Credential string
}

// Is reports whether the caller is the given identity.
func (c Caller) Is(identityID string) bool { return identityID != "" && c.ID == identityID }

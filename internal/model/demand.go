package model

import "time"

// DemandStatus is a state of the demand lifecycle.
type DemandStatus string

const (
	StatusPending   DemandStatus = "pending"
	StatusAccepted  DemandStatus = "accepted"
	StatusRejected  DemandStatus = "rejected"
	StatusCompleted DemandStatus = "completed"
	StatusCancelled DemandStatus = "cancelled"
)

// transitions lists every allowed move.  States absent as keys are terminal.
var transitions = map[DemandStatus][]DemandStatus{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s DemandStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s DemandStatus) Terminal() bool { return len(transitions[s]) == 0 }

// CanTransition reports whether from -> to is in the lifecycle table.
// A transition onto the same state is never allowed.
func CanTransition(from, to DemandStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowsMessaging reports whether participants may exchange messages on a
// demand in status s.  Threads open on acceptance and stay open once the
// work is completed.
func (s DemandStatus) AllowsMessaging() bool {
	return s == StatusAccepted || s == StatusCompleted
}

// ConfirmedBy records which party has agreed to a meeting location.
type ConfirmedBy string

const (
	ConfirmedByProvider ConfirmedBy = "provider"
	ConfirmedByClient   ConfirmedBy = "client"
	ConfirmedByBoth     ConfirmedBy = "both"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Location is the negotiated meeting place of a demand.  The provider
// proposes it and the client confirms it.
type Location struct {
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address,omitempty"`
	ConfirmedBy ConfirmedBy `json:"confirmedBy"`
	ConfirmedAt time.Time   `json:"confirmedAt"`
}

// Demand is a service request from a client to one provider.  Both parties
// are stored as identity ids; the provider profile id a client picks from a
// listing is resolved to the owning identity before the row is written.
// Version increments on every write and backs optimistic updates.
type Demand struct {
	ID                 string       `json:"id"`
	ClientIdentityID   string       `json:"clientIdentityId"`
	ProviderIdentityID string       `json:"providerIdentityId"`
	ServiceID          string       `json:"serviceId"`
	Message            string       `json:"message"`
	Status             DemandStatus `json:"status"`
	Location           *Location    `json:"location,omitempty"`
	AppointmentDate    *time.Time   `json:"appointmentDate,omitempty"`
	Version            int          `json:"version"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// IsParticipant reports whether identityID is the client or the provider.
func (d Demand) IsParticipant(identityID string) bool {
	return identityID != "" && (identityID == d.ClientIdentityID || identityID == d.ProviderIdentityID)
}

// Counterpart returns the other participant, or "" when identityID is not
// a participant.
func (d Demand) Counterpart(identityID string) string {
	switch identityID {
	case "":
		return ""
	case d.ClientIdentityID:
		return d.ProviderIdentityID
	case d.ProviderIdentityID:
		return d.ClientIdentityID
	}
	return ""
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

package service

import (
	"log/slog"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
)

// Policy decides what a call site does when a peer service is unreachable.
type Policy int

const (
	// FailClosed aborts the operation with the upstream error.
	FailClosed Policy = iota
	// FailOpen continues with a fallback decision.
	FailOpen
)

func (p Policy) String() string {
	if p == FailOpen {
		return "fail-open"
	}
	return "fail-closed"
}

// CallSite names one cross-service check and its policy.
type CallSite struct {
	Name   string
	Policy Policy
}

// Every cross-service check in the system.  The asymmetry is deliberate:
// checks that gate durable state are strict, defence-in-depth checks and
// side effects are best-effort.
var (
	RegistrationCatalogCheck = CallSite{"registration.catalog_check", FailClosed}
	ProfileCatalogCheck      = CallSite{"profile.catalog_check", FailOpen}
	DemandProviderResolution = CallSite{"demand.provider_resolution", FailClosed}
	OwnershipRecheck         = CallSite{"demand.ownership_recheck", FailOpen}
	MessageDemandResolution  = CallSite{"message.demand_resolution", FailClosed}
	ConversationSeeding      = CallSite{"demand.conversation_seeding", FailOpen}
	CatalogProviderListing   = CallSite{"catalog.provider_listing", FailOpen}
)

// Tolerate reports whether err may be skipped at this call site: the site
// is FailOpen and err is an upstream failure.  Tolerated failures are
// logged and counted.  Any other error is never tolerated.
func (s CallSite) Tolerate(err error, attrs ...any) bool {
	if err == nil || s.Policy != FailOpen || !errors.Is(err, apperr.UpstreamUnavailable) {
		return false
	}
	policyFallbacks.WithLabelValues(s.Name).Inc()
	slog.Warn("peer unavailable, continuing with fallback",
		append([]any{"call_site", s.Name, "error", err}, attrs...)...)
	return true
}

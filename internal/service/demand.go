package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// DefaultSeedText opens every conversation seeded on acceptance.
const DefaultSeedText = "Your request has been accepted. You can now discuss the details here."

// MaxDemandMessageLength bounds the free-text message of a demand.
const MaxDemandMessageLength = 2000

// DemandService owns the demand lifecycle.
type DemandService struct {
	store    DemandStore
	registry ProviderRegistry
	seeder   ConversationSeeder

	// SeedTimeout bounds one seeding attempt.  Seeding runs after the
	// request that accepted the demand has been answered.
	SeedTimeout time.Duration
	SeedText    string

	seeding sync.WaitGroup
}

func NewDemandService(store DemandStore, registry ProviderRegistry, seeder ConversationSeeder) *DemandService {
	return &DemandService{
		store:       store,
		registry:    registry,
		seeder:      seeder,
		SeedTimeout: 5 * time.Second,
		SeedText:    DefaultSeedText,
	}
}

// CreateDemandInput is what a client submits.  ProviderProfileID is the
// profile id shown in listings, not an identity id.
type CreateDemandInput struct {
	ProviderProfileID string
	ServiceID         string
	Message           string
}

// Create files a demand from a client to a provider.  The profile id is
// resolved to its owning identity here, once; the stored demand only ever
// references identities.
func (s *DemandService) Create(ctx context.Context, caller model.Caller, in CreateDemandInput) (model.Demand, error) {
	if caller.Role != model.RoleClient {
		return model.Demand{}, apperr.Authorization(apperr.CodeRoleNotPermitted, "only clients may create demands")
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.ProviderProfileID == "" || in.ServiceID == "" {
		return model.Demand{}, apperr.Validation(apperr.CodeValidation, "providerProfileId and serviceId are required")
	}
	if len([]rune(in.Message)) > MaxDemandMessageLength {
		return model.Demand{}, apperr.Validation(apperr.CodeValidation, "message exceeds %d characters", MaxDemandMessageLength)
	}

	providerIdentity, err := s.resolveProvider(ctx, in.ProviderProfileID, in.ServiceID)
	if err != nil {
		return model.Demand{}, err
	}
	if providerIdentity == caller.ID {
		return model.Demand{}, apperr.Validation(apperr.CodeInvalidProvider, "cannot file a demand with yourself")
	}

	d := model.Demand{
		ID:                 uuid.NewString(),
		ClientIdentityID:   caller.ID,
		ProviderIdentityID: providerIdentity,
		ServiceID:          in.ServiceID,
		Message:            in.Message,
		Status:             model.StatusPending,
	}
	if err := s.store.Create(ctx, &d); err != nil {
		return model.Demand{}, apperr.Internal(err)
	}
	slog.Info("demand created", "demand_id", d.ID, "client_id", d.ClientIdentityID, "provider_id", d.ProviderIdentityID)
	return d, nil
}

// resolveProvider maps a profile id onto the identity that owns it.  The
// registry is authoritative here, so an unreachable registry fails the
// creation.
func (s *DemandService) resolveProvider(ctx context.Context, profileID, serviceID string) (string, error) {
	p, err := s.registry.GetProfile(ctx, profileID)
	switch {
	case err == nil:
	case errors.Is(err, errors.NotFound):
		return "", apperr.Validation(apperr.CodeInvalidProvider, "provider %s does not exist", profileID)
	default:
		slog.Warn("provider resolution failed", "call_site", DemandProviderResolution.Name, "profile_id", profileID, "error", err)
		return "", err
	}
	if p.IdentityID == "" {
		return "", apperr.Validation(apperr.CodeInvalidProvider, "provider %s has no owning identity", profileID)
	}
	if p.ServiceID != serviceID {
		return "", apperr.Validation(apperr.CodeInvalidProvider, "provider %s does not offer service %s", profileID, serviceID)
	}
	return p.IdentityID, nil
}

// Get returns a demand to one of its participants.
func (s *DemandService) Get(ctx context.Context, caller model.Caller, id string) (model.Demand, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return model.Demand{}, err
	}
	if !d.IsParticipant(caller.ID) {
		return model.Demand{}, apperr.Authorization(apperr.CodeNotAParticipant, "not a participant of demand %s", id)
	}
	return d, nil
}

// Mine lists the demands the caller takes part in, newest first.
func (s *DemandService) Mine(ctx context.Context, caller model.Caller, page model.Page) ([]model.Demand, error) {
	out, err := s.store.ListByParticipant(ctx, caller.ID, page.Normalize())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// UpdateStatus applies one lifecycle transition.  Only the demand's
// provider may call it.  The write is conditional on the status read, so
// of two racing transitions out of the same state exactly one applies.
func (s *DemandService) UpdateStatus(ctx context.Context, caller model.Caller, id string, to model.DemandStatus) (model.Demand, error) {
	if !to.Valid() {
		return model.Demand{}, apperr.Validation(apperr.CodeValidation, "unknown status %q", to)
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return model.Demand{}, err
	}
	if err := s.authorizeProvider(ctx, caller, d); err != nil {
		return model.Demand{}, err
	}
	from := d.Status
	if !model.CanTransition(from, to) {
		return model.Demand{}, apperr.Validation(apperr.CodeInvalidTransition, "cannot move demand from %s to %s", from, to)
	}
	if err := s.store.UpdateStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Demand{}, s.raceError(ctx, id, to)
		}
		return model.Demand{}, apperr.Internal(err)
	}
	demandTransitions.WithLabelValues(string(from), string(to)).Inc()
	slog.Info("demand status changed", "demand_id", id, "from", from, "to", to, "by", caller.ID)

	// The transition is committed; answer the row as written when the
	// reload fails.
	updated, err := s.load(ctx, id)
	if err != nil {
		slog.Warn("reload after status change failed", "demand_id", id, "error", err)
		updated = d
		updated.Status = to
		updated.Version++
		updated.UpdatedAt = time.Now().UTC()
	}
	if to == model.StatusAccepted {
		s.seedAsync(ctx, caller, updated)
	}
	return updated, nil
}

// raceError explains a conditional update that matched no row.
func (s *DemandService) raceError(ctx context.Context, id string, to model.DemandStatus) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(current.Status, to) {
		return apperr.Validation(apperr.CodeInvalidTransition, "demand is now %s and cannot move to %s", current.Status, to)
	}
	return apperr.Conflict(http.StatusConflict, apperr.CodeStatusConflict, "demand %s was modified concurrently", id)
}

// authorizeProvider admits only the provider identity stored on the
// demand.  Rows written before profile ids were resolved at creation may
// hold a profile id; those are resolved through the registry.  That
// lookup is a secondary defence: when the registry is unreachable the
// decision falls back to the direct comparison.
func (s *DemandService) authorizeProvider(ctx context.Context, caller model.Caller, d model.Demand) error {
	if caller.Is(d.ProviderIdentityID) {
		return nil
	}
	denied := apperr.Authorization(apperr.CodeNotAuthorized, "only the provider of demand %s may do this", d.ID)
	if caller.Role != model.RoleProvider {
		return denied
	}
	p, err := s.registry.GetProfile(ctx, d.ProviderIdentityID)
	switch {
	case err == nil:
		if caller.Is(p.IdentityID) {
			return nil
		}
	case OwnershipRecheck.Tolerate(err, "demand_id", d.ID):
	case errors.Is(err, errors.NotFound):
	default:
		slog.Warn("ownership re-check failed", "demand_id", d.ID, "error", err)
	}
	return denied
}

// seedAsync asks messaging to open the thread of an accepted demand.  It
// runs after the response and never affects the status change.
func (s *DemandService) seedAsync(ctx context.Context, caller model.Caller, d model.Demand) {
	if s.seeder == nil {
		return
	}
	text := s.SeedText
	bg := context.WithoutCancel(ctx)
	s.seeding.Add(1)
	go func() {
		defer s.seeding.Done()
		ctx, cancel := context.WithTimeout(bg, s.SeedTimeout)
		defer cancel()
		err := s.seeder.SeedConversation(ctx, caller, d, text)
		switch {
		case err == nil:
			seedAttempts.WithLabelValues("ok").Inc()
		case ConversationSeeding.Tolerate(err, "demand_id", d.ID):
			seedAttempts.WithLabelValues("unavailable").Inc()
		default:
			seedAttempts.WithLabelValues("failed").Inc()
			slog.Warn("conversation seeding failed", "demand_id", d.ID, "error", err)
		}
	}()
}

// WaitSeeding blocks until in-flight seeding attempts finish.  Used on
// shutdown and by tests.
func (s *DemandService) WaitSeeding() { s.seeding.Wait() }

// LocationInput is the provider's meeting proposal.
type LocationInput struct {
	Coordinates     model.Coordinates
	Address         string
	AppointmentDate *time.Time
}

// SetLocation records the provider's proposed meeting place.  The demand
// must be accepted.  A new proposal resets any client confirmation.
func (s *DemandService) SetLocation(ctx context.Context, caller model.Caller, id string, in LocationInput) (model.Demand, error) {
	if !in.Coordinates.Valid() {
		return model.Demand{}, apperr.Validation(apperr.CodeValidation, "coordinates are out of range")
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return model.Demand{}, err
	}
	if err := s.authorizeProvider(ctx, caller, d); err != nil {
		return model.Demand{}, err
	}
	if d.Status != model.StatusAccepted {
		return model.Demand{}, apperr.Validation(apperr.CodeDemandNotAccepted, "a meeting location can only be set on an accepted demand")
	}
	loc := model.Location{
		Coordinates: in.Coordinates,
		Address:     strings.TrimSpace(in.Address),
		ConfirmedBy: model.ConfirmedByProvider,
		ConfirmedAt: time.Now().UTC().Truncate(time.Second),
	}
	return s.saveLocation(ctx, d, loc, in.AppointmentDate)
}

// ConfirmLocation records the client's agreement to the proposed place.
func (s *DemandService) ConfirmLocation(ctx context.Context, caller model.Caller, id string) (model.Demand, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return model.Demand{}, err
	}
	if !caller.Is(d.ClientIdentityID) {
		return model.Demand{}, apperr.Authorization(apperr.CodeNotAuthorized, "only the client of demand %s may confirm the location", id)
	}
	if d.Location == nil {
		return model.Demand{}, apperr.Validation(apperr.CodeNoLocationSet, "the provider has not proposed a location yet")
	}
	if d.Status != model.StatusAccepted {
		return model.Demand{}, apperr.Validation(apperr.CodeDemandNotAccepted, "the demand is %s", d.Status)
	}
	loc := *d.Location
	loc.ConfirmedBy = model.ConfirmedByBoth
	loc.ConfirmedAt = time.Now().UTC().Truncate(time.Second)
	return s.saveLocation(ctx, d, loc, nil)
}

func (s *DemandService) saveLocation(ctx context.Context, d model.Demand, loc model.Location, appointment *time.Time) (model.Demand, error) {
	if err := s.store.SaveLocation(ctx, d.ID, d.Version, loc, appointment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Demand{}, apperr.Conflict(http.StatusConflict, apperr.CodeStatusConflict, "demand %s was modified concurrently", d.ID)
		}
		return model.Demand{}, apperr.Internal(err)
	}
	slog.Info("meeting location saved", "demand_id", d.ID, "confirmed_by", loc.ConfirmedBy)
	return s.load(ctx, d.ID)
}

func (s *DemandService) load(ctx context.Context, id string) (model.Demand, error) {
	d, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Demand{}, apperr.NotFound("demand %s not found", id)
	}
	if err != nil {
		return model.Demand{}, apperr.Internal(err)
	}
	return d, nil
}

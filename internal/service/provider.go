package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// ProviderService owns provider profiles.
type ProviderService struct {
	store   ProfileStore
	catalog ServiceCatalog
}

func NewProviderService(store ProfileStore, catalog ServiceCatalog) *ProviderService {
	return &ProviderService{store: store, catalog: catalog}
}

// Create makes the caller's profile.  The caller must hold the provider
// role and must not already have a profile.  The catalog check is
// best-effort: a mismatch rejects, an unreachable catalog does not.
func (s *ProviderService) Create(ctx context.Context, caller model.Caller, in model.ProfileInput) (model.ProviderProfile, error) {
	if caller.Role != model.RoleProvider {
		return model.ProviderProfile{}, apperr.Authorization(apperr.CodeRoleNotPermitted, "only provider identities may create a profile")
	}
	if in.CategoryID == "" || in.ServiceID == "" {
		return model.ProviderProfile{}, apperr.Validation(apperr.CodeValidation, "category and service are required")
	}
	if in.ExperienceYears < 0 {
		return model.ProviderProfile{}, apperr.Validation(apperr.CodeValidation, "experience must not be negative")
	}
	detail, err := s.catalog.GetService(ctx, in.ServiceID)
	switch {
	case err == nil:
		if !detail.BelongsTo(in.CategoryID) {
			return model.ProviderProfile{}, apperr.Validation(apperr.CodeInvalidServiceCategory,
				"service %s does not belong to category %s", in.ServiceID, in.CategoryID)
		}
	case ProfileCatalogCheck.Tolerate(err, "service_id", in.ServiceID):
	case errors.Is(err, errors.NotFound):
		return model.ProviderProfile{}, apperr.Validation(apperr.CodeInvalidServiceCategory, "service %s does not exist", in.ServiceID)
	default:
		return model.ProviderProfile{}, err
	}

	p := model.ProviderProfile{
		ID:               uuid.NewString(),
		IdentityID:       caller.ID,
		DisplayName:      strings.TrimSpace(in.DisplayName),
		CategoryID:       in.CategoryID,
		ServiceID:        in.ServiceID,
		ExperienceYears:  int(in.ExperienceYears),
		City:             strings.TrimSpace(in.City),
		ProfileImage:     in.ProfileImage,
		CertificateImage: in.CertificateImage,
		Available:        true,
	}
	if err := s.store.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.ProviderProfile{}, apperr.Conflict(http.StatusBadRequest, apperr.CodeAlreadyExists, "a provider profile already exists for this identity")
		}
		return model.ProviderProfile{}, apperr.Internal(err)
	}
	slog.Info("provider profile created", "profile_id", p.ID, "identity_id", p.IdentityID)
	return p, nil
}

func (s *ProviderService) Get(ctx context.Context, id string) (model.ProviderProfile, error) {
	return s.lookup(s.store.GetByID(ctx, id))
}

// Mine returns the caller's own profile.
func (s *ProviderService) Mine(ctx context.Context, caller model.Caller) (model.ProviderProfile, error) {
	return s.lookup(s.store.GetByIdentity(ctx, caller.ID))
}

func (s *ProviderService) List(ctx context.Context, f model.ProviderFilter) ([]model.ProviderProfile, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// SetAvailability toggles the caller's own availability.
func (s *ProviderService) SetAvailability(ctx context.Context, caller model.Caller, available bool) (model.ProviderProfile, error) {
	if caller.Role != model.RoleProvider {
		return model.ProviderProfile{}, apperr.Authorization(apperr.CodeRoleNotPermitted, "only providers have an availability")
	}
	if err := s.store.SetAvailability(ctx, caller.ID, available); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ProviderProfile{}, apperr.NotFound("no provider profile for this identity")
		}
		return model.ProviderProfile{}, apperr.Internal(err)
	}
	return s.Mine(ctx, caller)
}

// Verify marks a profile verified.  Administrators only.
func (s *ProviderService) Verify(ctx context.Context, caller model.Caller, id string) (model.ProviderProfile, error) {
	if caller.Role != model.RoleAdmin {
		return model.ProviderProfile{}, apperr.Authorization(apperr.CodeNotAuthorized, "only administrators may verify providers")
	}
	if err := s.store.SetVerified(ctx, id, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ProviderProfile{}, apperr.NotFound("provider %s not found", id)
		}
		return model.ProviderProfile{}, apperr.Internal(err)
	}
	slog.Info("provider verified", "profile_id", id, "by", caller.ID)
	return s.Get(ctx, id)
}

func (s *ProviderService) lookup(p model.ProviderProfile, err error) (model.ProviderProfile, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return model.ProviderProfile{}, apperr.NotFound("provider profile not found")
	}
	if err != nil {
		return model.ProviderProfile{}, apperr.Internal(err)
	}
	return p, nil
}

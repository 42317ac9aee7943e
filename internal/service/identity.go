package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

// IdentityConfig carries the identity service's credential settings.
type IdentityConfig struct {
	Secret          string
	BcryptCost      int
	CredentialTTL   time.Duration
	ProvisioningTTL time.Duration
}

// IdentityService registers and authenticates identities and runs the
// provider registration saga.
type IdentityService struct {
	cfg      IdentityConfig
	store    IdentityStore
	catalog  ServiceCatalog
	registry ProviderRegistry
}

func NewIdentityService(cfg IdentityConfig, store IdentityStore, catalog ServiceCatalog, registry ProviderRegistry) *IdentityService {
	if cfg.CredentialTTL <= 0 {
		cfg.CredentialTTL = 7 * 24 * time.Hour
	}
	if cfg.ProvisioningTTL <= 0 {
		cfg.ProvisioningTTL = 10 * time.Minute
	}
	return &IdentityService{cfg: cfg, store: store, catalog: catalog, registry: registry}
}

// RegisterInput is the payload of a plain registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	City     string
}

// ProviderRegistrationInput is the payload of a provider registration.
type ProviderRegistrationInput struct {
	RegisterInput
	CategoryID       string
	ServiceID        string
	ExperienceYears  int
	ProfileImage     string
	CertificateImage string
}

// AuthResult is answered by register and login.
type AuthResult struct {
	Identity   model.IdentitySummary  `json:"identity"`
	Provider   *model.ProviderProfile `json:"provider,omitempty"`
	Credential utils.Credential       `json:"credential"`
}

// VerifyResult is the decoded content of a valid credential.
type VerifyResult struct {
	IdentityID string     `json:"identityId"`
	Role       model.Role `json:"role"`
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation(apperr.CodeValidation, "name is required")
	}
	email := repository.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return apperr.Validation(apperr.CodeValidation, "a valid email is required")
	}
	if len(in.Password) < 6 {
		return apperr.Validation(apperr.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}

// Register creates a client identity.  Provider identities are only
// created through RegisterProvider so that one never exists without its
// profile; admin identities are provisioned out of band.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if err := in.validate(); err != nil {
		return AuthResult{}, err
	}
	role, ok := model.ParseRole(in.Role)
	if !ok || role == model.RoleAdmin {
		return AuthResult{}, apperr.Validation(apperr.CodeValidation, "unknown role %q", in.Role)
	}
	if role == model.RoleProvider {
		return AuthResult{}, apperr.Validation(apperr.CodeValidation, "providers register through /auth/register-provider")
	}
	ident, err := s.createIdentity(ctx, in, role)
	if err != nil {
		return AuthResult{}, err
	}
	cred, err := utils.IssueCredential(s.cfg.Secret, ident.ID, string(ident.Role), s.cfg.CredentialTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	slog.Info("identity registered", "identity_id", ident.ID, "role", ident.Role)
	return AuthResult{Identity: ident.Summary(), Credential: cred}, nil
}

func (s *IdentityService) createIdentity(ctx context.Context, in RegisterInput, role model.Role) (model.Identity, error) {
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.Identity{}, apperr.Internal(errors.Annotate(err, "hash password"))
	}
	ident := model.Identity{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		DisplayName:  strings.TrimSpace(in.Name),
		City:         strings.TrimSpace(in.City),
	}
	if err := s.store.Create(ctx, &ident); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Identity{}, apperr.Conflict(http.StatusBadRequest, apperr.CodeDuplicateEmail, "email is already registered")
		}
		return model.Identity{}, apperr.Internal(err)
	}
	return ident, nil
}

// Login checks an email/password pair.  Unknown emails and wrong passwords
// answer the same InvalidCredentials error and cost the same bcrypt work.
func (s *IdentityService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	invalid := apperr.Validation(apperr.CodeInvalidCredentials, "invalid email or password")
	if repository.NormalizeEmail(email) == "" || password == "" {
		return AuthResult{}, invalid
	}
	ident, err := s.store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.VerifyPassword("", password)
		return AuthResult{}, invalid
	case err != nil:
		return AuthResult{}, apperr.Internal(err)
	}
	if !utils.VerifyPassword(ident.PasswordHash, password) {
		return AuthResult{}, invalid
	}
	cred, err := utils.IssueCredential(s.cfg.Secret, ident.ID, string(ident.Role), s.cfg.CredentialTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	return AuthResult{Identity: ident.Summary(), Credential: cred}, nil
}

// Verify decodes a credential.
func (s *IdentityService) Verify(raw string) (VerifyResult, error) {
	claims, err := utils.ParseCredential(s.cfg.Secret, raw)
	if err != nil {
		return VerifyResult{}, apperr.Authentication(apperr.CodeInvalidCredential, "invalid or expired credential")
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return VerifyResult{}, apperr.Authentication(apperr.CodeInvalidCredential, "unknown role in credential")
	}
	return VerifyResult{IdentityID: claims.Subject, Role: role}, nil
}

// Me returns the summary of the caller's identity.
func (s *IdentityService) Me(ctx context.Context, caller model.Caller) (model.IdentitySummary, error) {
	ident, err := s.store.GetByID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.IdentitySummary{}, apperr.NotFound("identity %s not found", caller.ID)
	}
	if err != nil {
		return model.IdentitySummary{}, apperr.Internal(err)
	}
	return ident.Summary(), nil
}

// RegisterProvider creates a provider identity and its profile.  The two
// records live in different stores, so the operation is a saga:
//
//  1. check the service/category pairing with the catalog (fail closed)
//  2. create the identity                      -> ProfilePending
//  3. issue a short-lived credential for it
//  4. create the profile in the provider registry -> Committed
//
// When step 4 fails for any reason the identity is deleted and the caller
// gets ProviderProvisioningFailed; a provider identity without a profile
// is never returned.
func (s *IdentityService) RegisterProvider(ctx context.Context, in ProviderRegistrationInput) (AuthResult, error) {
	if err := in.validate(); err != nil {
		return AuthResult{}, err
	}
	if in.CategoryID == "" || in.ServiceID == "" {
		return AuthResult{}, apperr.Validation(apperr.CodeValidation, "category and service are required")
	}
	if in.ExperienceYears < 0 {
		return AuthResult{}, apperr.Validation(apperr.CodeValidation, "experience must not be negative")
	}
	if err := s.checkServiceCategory(ctx, in.ServiceID, in.CategoryID); err != nil {
		return AuthResult{}, err
	}

	var (
		ident       model.Identity
		provisional utils.Credential
		profile     model.ProviderProfile
	)
	saga := NewSaga("register_provider", "email", repository.NormalizeEmail(in.Email))
	saga.Step(SagaStep{
		Name: "create_identity",
		Run: func(ctx context.Context) error {
			var err error
			ident, err = s.createIdentity(ctx, in.RegisterInput, model.RoleProvider)
			return err
		},
		Compensate: func(ctx context.Context) error {
			slog.Warn("deleting provider identity after failed provisioning", "identity_id", ident.ID)
			return s.store.Delete(ctx, ident.ID)
		},
		Then: SagaProfilePending,
	}).Step(SagaStep{
		Name: "issue_credential",
		Run: func(context.Context) error {
			var err error
			provisional, err = utils.IssueCredential(s.cfg.Secret, ident.ID, string(model.RoleProvider), s.cfg.ProvisioningTTL)
			return err
		},
	}).Step(SagaStep{
		Name: "create_profile",
		Run: func(ctx context.Context) error {
			var err error
			profile, err = s.registry.CreateProfile(ctx, provisional.Token, model.ProfileInput{
				DisplayName:      ident.DisplayName,
				CategoryID:       in.CategoryID,
				ServiceID:        in.ServiceID,
				ExperienceYears:  model.Years(in.ExperienceYears),
				City:             ident.City,
				ProfileImage:     in.ProfileImage,
				CertificateImage: in.CertificateImage,
			})
			return err
		},
		Then: SagaCommitted,
	})

	if err := saga.Execute(ctx); err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) && stepErr.Step == "create_identity" {
			// Nothing was written; surface the original error (e.g. DuplicateEmail).
			return AuthResult{}, stepErr.Err
		}
		return AuthResult{}, &apperr.Error{
			Code:    apperr.CodeProviderProvisioningFailed,
			Message: "provider profile could not be created; registration was rolled back",
			Status:  http.StatusInternalServerError,
		}
	}

	cred, err := utils.IssueCredential(s.cfg.Secret, ident.ID, string(ident.Role), s.cfg.CredentialTTL)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}
	slog.Info("provider registered", "identity_id", ident.ID, "profile_id", profile.ID)
	return AuthResult{Identity: ident.Summary(), Provider: &profile, Credential: cred}, nil
}

// checkServiceCategory is the fail-closed catalog gate of the saga.
func (s *IdentityService) checkServiceCategory(ctx context.Context, serviceID, categoryID string) error {
	detail, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		if RegistrationCatalogCheck.Tolerate(err) {
			return nil
		}
		slog.Warn("registration catalog check failed", "service_id", serviceID, "error", err)
		return apperr.Validation(apperr.CodeInvalidServiceCategory, "service %s could not be validated against category %s", serviceID, categoryID)
	}
	if !detail.BelongsTo(categoryID) {
		return apperr.Validation(apperr.CodeInvalidServiceCategory, "service %s does not belong to category %s", serviceID, categoryID)
	}
	return nil
}

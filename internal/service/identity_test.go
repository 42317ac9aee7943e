package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

const testSecret = "test-secret"

func newIdentityService(t *testing.T) (*IdentityService, *memIdentities, *mockCatalog, *mockRegistry) {
	t.Helper()
	store := newMemIdentities()
	cat := &mockCatalog{}
	reg := &mockRegistry{}
	svc := NewIdentityService(IdentityConfig{Secret: testSecret, BcryptCost: 4}, store, cat, reg)
	return svc, store, cat, reg
}

func providerInput(email string) ProviderRegistrationInput {
	return ProviderRegistrationInput{
		RegisterInput:   RegisterInput{Name: "Bob", Email: email, Password: "secret1", City: "Tunis"},
		CategoryID:      "c1",
		ServiceID:       "s1",
		ExperienceYears: 4,
	}
}

var s1InC1 = model.ServiceDetail{
	Service:  model.Service{ID: "s1", CategoryID: "c1"},
	Category: model.Category{ID: "c1"},
}

func TestRegisterClient(t *testing.T) {
	svc, _, _, _ := newIdentityService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "A@X.com", Password: "secret1", Role: "client"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.Identity.Email)
	assert.Equal(t, model.RoleClient, res.Identity.Role)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), res.Credential.Exp, time.Minute)

	claims, err := utils.ParseCredential(testSecret, res.Credential.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Identity.ID, claims.Subject)

	_, err = svc.Register(ctx, RegisterInput{Name: "Alice 2", Email: "a@x.com", Password: "secret2"})
	assert.True(t, apperr.Is(err, apperr.CodeDuplicateEmail))
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}

func TestRegisterRejectsProviderAndAdminRoles(t *testing.T) {
	svc, store, _, _ := newIdentityService(t)
	for _, role := range []string{"provider", "prestataire", "admin", "owner"} {
		_, err := svc.Register(context.Background(), RegisterInput{Name: "X", Email: role + "@x.com", Password: "secret1", Role: role})
		assert.True(t, errors.Is(err, errors.NotValid), role)
	}
	assert.Empty(t, store.rows)
}

func TestLoginDoesNotDistinguishFailures(t *testing.T) {
	svc, _, _, _ := newIdentityService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "a@x.com", "nope")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "secret1")
	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.True(t, apperr.Is(unknownEmail, apperr.CodeInvalidCredentials))

	res, err := svc.Login(ctx, " A@x.com ", "secret1")
	require.NoError(t, err)
	v, err := svc.Verify(res.Credential.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Identity.ID, v.IdentityID)
	assert.Equal(t, model.RoleClient, v.Role)
}

func TestVerifyRejectsBadCredential(t *testing.T) {
	svc, _, _, _ := newIdentityService(t)
	cred, err := utils.IssueCredential("other-secret", "id", "client", time.Hour)
	require.NoError(t, err)
	_, err = svc.Verify(cred.Token)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidCredential))
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))
}

func TestRegisterProviderCommits(t *testing.T) {
	svc, store, cat, reg := newIdentityService(t)
	cat.On("GetService", mock.Anything, "s1").Return(s1InC1, nil)

	var presented string
	reg.On("CreateProfile", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { presented = args.String(1) }).
		Return(model.ProviderProfile{ID: "p1", ServiceID: "s1", CategoryID: "c1"}, nil)

	res, err := svc.RegisterProvider(context.Background(), providerInput("b@x.com"))
	require.NoError(t, err)
	require.NotNil(t, res.Provider)
	assert.Equal(t, "p1", res.Provider.ID)
	assert.Equal(t, model.RoleProvider, res.Identity.Role)
	assert.Len(t, store.rows, 1)

	// The profile call carries a short-lived credential for the new identity.
	claims, err := utils.ParseCredential(testSecret, presented)
	require.NoError(t, err)
	assert.Equal(t, res.Identity.ID, claims.Subject)
	assert.Equal(t, "provider", claims.Role)
	assert.True(t, claims.ExpiresAt.Time.Before(time.Now().Add(11*time.Minute)))
}

func TestRegisterProviderCompensatesFailedProfile(t *testing.T) {
	failures := map[string]error{
		"upstream":   apperr.Upstream("provider", fmt.Errorf("connection refused")),
		"validation": apperr.Validation(apperr.CodeValidation, "experience must not be negative"),
		"duplicate":  apperr.FromStatus(http.StatusBadRequest, apperr.CodeAlreadyExists, "exists"),
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			svc, store, cat, reg := newIdentityService(t)
			cat.On("GetService", mock.Anything, "s1").Return(s1InC1, nil)
			reg.On("CreateProfile", mock.Anything, mock.Anything, mock.Anything).Return(model.ProviderProfile{}, failure)

			_, err := svc.RegisterProvider(context.Background(), providerInput("b@x.com"))
			assert.True(t, apperr.Is(err, apperr.CodeProviderProvisioningFailed))
			assert.Equal(t, http.StatusInternalServerError, apperr.StatusOf(err))

			_, lookup := store.GetByEmail(context.Background(), "b@x.com")
			assert.Error(t, lookup, "identity must be removed after a failed profile creation")
			assert.Empty(t, store.rows)
		})
	}
}

func TestRegisterProviderFailsClosedOnCatalog(t *testing.T) {
	svc, store, cat, reg := newIdentityService(t)
	cat.On("GetService", mock.Anything, "s1").Return(model.ServiceDetail{}, apperr.Upstream("catalog", fmt.Errorf("timeout")))

	_, err := svc.RegisterProvider(context.Background(), providerInput("b@x.com"))
	assert.True(t, apperr.Is(err, apperr.CodeInvalidServiceCategory))
	assert.Empty(t, store.rows)
	reg.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterProviderRejectsMismatchedCategory(t *testing.T) {
	svc, store, cat, _ := newIdentityService(t)
	cat.On("GetService", mock.Anything, "s1").Return(model.ServiceDetail{
		Service:  model.Service{ID: "s1", CategoryID: "c2"},
		Category: model.Category{ID: "c2"},
	}, nil)

	_, err := svc.RegisterProvider(context.Background(), providerInput("b@x.com"))
	assert.True(t, apperr.Is(err, apperr.CodeInvalidServiceCategory))
	assert.Empty(t, store.rows)
}

func TestRegisterProviderDuplicateEmailIsNotRolledBack(t *testing.T) {
	svc, store, cat, reg := newIdentityService(t)
	cat.On("GetService", mock.Anything, "s1").Return(s1InC1, nil)
	_, err := svc.Register(context.Background(), RegisterInput{Name: "B", Email: "b@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.RegisterProvider(context.Background(), providerInput("b@x.com"))
	assert.True(t, apperr.Is(err, apperr.CodeDuplicateEmail))
	// The existing client identity is untouched.
	assert.Len(t, store.rows, 1)
	reg.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestMeReturnsSummary(t *testing.T) {
	svc, _, _, _ := newIdentityService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@x.com", Password: "secret1", City: "Sfax"})
	require.NoError(t, err)

	me, err := svc.Me(ctx, model.Caller{ID: res.Identity.ID, Role: model.RoleClient})
	require.NoError(t, err)
	assert.Equal(t, res.Identity, me)

	_, err = svc.Me(ctx, model.Caller{ID: "gone", Role: model.RoleClient})
	assert.True(t, errors.Is(err, errors.NotFound))
}

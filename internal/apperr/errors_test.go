package apperr

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juju/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsAreVisibleThroughWrapping(t *testing.T) {
	base := Authorization(CodeNotAParticipant, "not a participant of demand %s", "d1")
	wrapped := fmt.Errorf("send message: %w", base)

	assert.True(t, errors.Is(wrapped, errors.Forbidden))
	assert.False(t, errors.Is(wrapped, errors.NotFound))
	assert.True(t, Is(wrapped, CodeNotAParticipant))
	assert.Equal(t, http.StatusForbidden, StatusOf(wrapped))
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Upstream("catalog", cause)

	assert.True(t, errors.Is(err, UpstreamUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
}

func TestStatusOfPlainJujuErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NotValidf("email"), http.StatusBadRequest},
		{errors.NotFoundf("demand"), http.StatusNotFound},
		{errors.AlreadyExistsf("profile"), http.StatusConflict},
		{errors.Unauthorizedf("token"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestFromStatus(t *testing.T) {
	err := FromStatus(http.StatusBadRequest, CodeInvalidServiceCategory, "service does not belong to category")
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Equal(t, CodeInvalidServiceCategory, err.Code)

	err = FromStatus(http.StatusBadGateway, "", "")
	assert.True(t, errors.Is(err, UpstreamUnavailable))
	assert.Equal(t, "Bad Gateway", err.Code)
}

func TestHTTPErrorHandlerHidesInternalCause(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/demands/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(Internal(fmt.Errorf("sql: connection reset by peer")), c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"InternalError","message":"internal error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "sql")
}

func TestHTTPErrorHandlerRendersCode(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/demands/1/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(Validation(CodeInvalidTransition, "cannot move demand from pending to completed"), c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"InvalidTransition","message":"cannot move demand from pending to completed"}`, rec.Body.String())
}

func TestHTTPErrorHandlerEchoErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(echo.NewHTTPError(http.StatusBadGateway, "dial tcp"), c)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeUpstreamUnavailable)
}

// Package apperr is the error taxonomy shared by every service.  Each
// error carries a juju/errors kind (so callers can test it with errors.Is),
// a stable machine-readable code for clients and the HTTP status it maps
// to.  The human message is safe to serialize; causes are kept for logs.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/juju/errors"
)

// UpstreamUnavailable is the kind of every failed call to a peer service:
// transport error, timeout or a 5xx answer.
const UpstreamUnavailable = errors.ConstError("upstream unavailable")

// Stable error codes.  These are part of the public API.
const (
	CodeValidation                 = "ValidationError"
	CodeDuplicateEmail             = "DuplicateEmail"
	CodeInvalidCredentials         = "InvalidCredentials"
	CodeInvalidCredential          = "InvalidCredential"
	CodeMissingCredential          = "MissingCredential"
	CodeIdentityMismatch           = "IdentityMismatch"
	CodeRoleNotPermitted           = "RoleNotPermitted"
	CodeNotAuthorized              = "NotAuthorized"
	CodeNotAParticipant            = "NotAParticipant"
	CodeNotFound                   = "NotFound"
	CodeRouteNotFound              = "RouteNotFound"
	CodeAlreadyExists              = "AlreadyExists"
	CodeInvalidServiceCategory     = "InvalidServiceCategory"
	CodeProviderProvisioningFailed = "ProviderProvisioningFailed"
	CodeInvalidProvider            = "InvalidProvider"
	CodeInvalidTransition          = "InvalidTransition"
	CodeStatusConflict             = "StatusConflict"
	CodeDemandNotAccepted          = "DemandNotAccepted"
	CodeNoLocationSet              = "NoLocationSet"
	CodeSelfMessage                = "SelfMessageNotAllowed"
	CodeConversationClosed         = "ConversationClosed"
	CodeIdempotencyConflict        = "IdempotencyConflict"
	CodeTooManyRequests            = "TooManyRequests"
	CodeUpstreamUnavailable        = "UpstreamUnavailable"
	CodeInternal                   = "InternalError"
)

// Error is a classified application error.
type Error struct {
	Code    string
	Message string
	Status  int
	kind    error
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Code + ": " + e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// Kind returns the juju/errors kind of the error.
func (e *Error) Kind() error { return e.kind }

// Wrap attaches a cause, returning a copy.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func newErr(kind error, status int, code, format string, args []any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Status: status, kind: kind}
}

// Validation builds a 400 ValidationError-kind error.
func Validation(code, format string, args ...any) *Error {
	return newErr(errors.NotValid, http.StatusBadRequest, code, format, args)
}

// Authentication builds a 401 error.
func Authentication(code, format string, args ...any) *Error {
	return newErr(errors.Unauthorized, http.StatusUnauthorized, code, format, args)
}

// Authorization builds a 403 error.
func Authorization(code, format string, args ...any) *Error {
	return newErr(errors.Forbidden, http.StatusForbidden, code, format, args)
}

// NotFound builds a 404 error.
func NotFound(format string, args ...any) *Error {
	return newErr(errors.NotFound, http.StatusNotFound, CodeNotFound, format, args)
}

// Conflict builds an AlreadyExists-kind error.  Duplicates caused by user
// input answer 400; races between concurrent writers answer 409.
func Conflict(status int, code, format string, args ...any) *Error {
	return newErr(errors.AlreadyExists, status, code, format, args)
}

// Upstream builds a 503 error for a failed call to the named peer.
func Upstream(peer string, cause error) *Error {
	e := newErr(UpstreamUnavailable, http.StatusServiceUnavailable, CodeUpstreamUnavailable, "%s is unavailable", []any{peer})
	e.cause = cause
	return e
}

// Internal wraps an unexpected failure.  Its message is generic; the cause
// is only visible in logs.
func Internal(cause error) *Error {
	e := newErr(nil, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	e.cause = cause
	return e
}

// FromStatus rebuilds an error answered by a peer.  The kind follows the
// status so callers can branch with errors.Is regardless of which service
// produced it.
func FromStatus(status int, code, message string) *Error {
	if code == "" {
		code = http.StatusText(status)
	}
	e := &Error{Code: code, Message: message, Status: status}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.kind = errors.NotValid
	case status == http.StatusUnauthorized:
		e.kind = errors.Unauthorized
	case status == http.StatusForbidden:
		e.kind = errors.Forbidden
	case status == http.StatusNotFound:
		e.kind = errors.NotFound
	case status == http.StatusConflict:
		e.kind = errors.AlreadyExists
	case status >= 500:
		e.kind = UpstreamUnavailable
	}
	return e
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// StatusOf maps any error onto an HTTP status.  Errors created outside this
// package are classified by their juju/errors kind.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	switch {
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errors.Unauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.AlreadyExists):
		return http.StatusConflict
	case errors.Is(err, UpstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

package middleware

import (
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/apperr"
    "github.com/iliyamo/service-marketplace/internal/model"
    "github.com/iliyamo/service-marketplace/internal/utils"
)

// BearerToken extracts the raw token from an Authorization header value.
// It returns "" when the header is not a bearer credential.
func BearerToken(header string) string {
    const prefix = "Bearer "
    if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
        return ""
    }
    return strings.TrimSpace(header[len(prefix):])
}

// Authenticate verifies the bearer credential of every request it wraps and
// stores the resulting model.Caller in context.  The gateway has already
// checked the token, but services do not trust the forwarded X-User-Id
// header on its own: a request that reaches a service directly with a
// forged header is rejected because the header must name the credential
// subject.
func Authenticate(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
            if raw == "" {
                return apperr.Authentication(apperr.CodeMissingCredential, "missing bearer credential")
            }
            claims, err := utils.ParseCredential(secret, raw)
            if err != nil {
                return apperr.Authentication(apperr.CodeInvalidCredential, "invalid or expired credential")
            }
            if fwd := c.Request().Header.Get(HeaderUserID); fwd != "" && fwd != claims.Subject {
                return apperr.Authentication(apperr.CodeIdentityMismatch, "forwarded identity does not match credential")
            }
            role, ok := model.ParseRole(claims.Role)
            if !ok {
                return apperr.Authentication(apperr.CodeInvalidCredential, "unknown role in credential")
            }
            SetCaller(c, model.Caller{ID: claims.Subject, Role: role, Credential: raw})
            return next(c)
        }
    }
}

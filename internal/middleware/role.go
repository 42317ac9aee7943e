package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/apperr"
    "github.com/iliyamo/service-marketplace/internal/model"
)

// RequireRole returns a middleware that enforces the authenticated caller
// has one of the given roles.  It must run after Authenticate; a route
// without a caller answers 401, a caller with another role answers 403
// RoleNotPermitted.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            caller, ok := CallerFrom(c)
            if !ok {
                return apperr.Authentication(apperr.CodeMissingCredential, "missing bearer credential")
            }
            if !allowed[caller.Role] {
                return apperr.Authorization(apperr.CodeRoleNotPermitted, "role %s may not call this endpoint", caller.Role)
            }
            return next(c)
        }
    }
}

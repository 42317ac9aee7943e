package middleware

// identity.go holds the request-scoped caller shared across middleware
// files.  Authenticate stores a verified model.Caller in the Echo context;
// everything downstream reads it through CallerFrom and never looks at the
// forwarded identity headers directly.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/model"
)

// Headers injected by the gateway next to the unchanged Authorization header.
const (
    HeaderUserID   = "X-User-Id"
    HeaderUserRole = "X-User-Role"
)

const callerKey = "caller"

// SetCaller stores the verified caller in context.
func SetCaller(c echo.Context, caller model.Caller) { c.Set(callerKey, caller) }

// CallerFrom returns the caller verified by Authenticate.  The second value
// is false on routes that were not authenticated.
func CallerFrom(c echo.Context) (model.Caller, bool) {
    caller, ok := c.Get(callerKey).(model.Caller)
    return caller, ok && caller.ID != ""
}

// userID returns the caller id for keys and log lines, or "guest".
func userID(c echo.Context) string {
    if caller, ok := CallerFrom(c); ok {
        return caller.ID
    }
    return "guest"
}

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health returns a liveness handler for the named service.  Load balancers
// and the compose healthchecks poll it; it never touches the database.
func Health(service string) echo.HandlerFunc {
    return func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": service})
    }
}

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/model"
    "github.com/iliyamo/service-marketplace/internal/service"
)

// ProviderHandler serves /providers.
type ProviderHandler struct {
    Svc *service.ProviderService
}

func NewProviderHandler(svc *service.ProviderService) *ProviderHandler { return &ProviderHandler{Svc: svc} }

// Create handles POST /providers.  The profile is created for the caller.
func (h *ProviderHandler) Create(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req model.ProfileInput
    if err := bind(c, &req); err != nil {
        return err
    }
    out, err := h.Svc.Create(c.Request().Context(), caller, req)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, out)
}

// List handles GET /providers?service=&category=&city=&available=.
func (h *ProviderHandler) List(c echo.Context) error {
    f := model.ProviderFilter{
        ServiceID:  c.QueryParam("service"),
        CategoryID: c.QueryParam("category"),
        City:       c.QueryParam("city"),
    }
    switch c.QueryParam("available") {
    case "true", "1":
        t := true
        f.Available = &t
    case "false", "0":
        v := false
        f.Available = &v
    }
    out, err := h.Svc.List(c.Request().Context(), f)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// ListByService handles GET /providers/by-service/:serviceId.
func (h *ProviderHandler) ListByService(c echo.Context) error {
    out, err := h.Svc.List(c.Request().Context(), model.ProviderFilter{ServiceID: c.Param("serviceId")})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /providers/:id.
func (h *ProviderHandler) Get(c echo.Context) error {
    out, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// Mine handles GET /providers/me.
func (h *ProviderHandler) Mine(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    out, err := h.Svc.Mine(c.Request().Context(), caller)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

type availabilityReq struct {
    Available *bool `json:"available"`
}

// SetAvailability handles PATCH /providers/me/availability.
func (h *ProviderHandler) SetAvailability(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req availabilityReq
    if err := bind(c, &req); err != nil {
        return err
    }
    if req.Available == nil {
        return required("available")
    }
    out, err := h.Svc.SetAvailability(c.Request().Context(), caller, *req.Available)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// Verify handles PATCH /providers/:id/verify (admin).
func (h *ProviderHandler) Verify(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    out, err := h.Svc.Verify(c.Request().Context(), caller, c.Param("id"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

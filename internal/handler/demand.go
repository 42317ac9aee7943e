package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/apperr"
    "github.com/iliyamo/service-marketplace/internal/model"
    "github.com/iliyamo/service-marketplace/internal/service"
)

// DemandHandler serves /demands.  Every route is authenticated; role and
// participant checks live in the service layer because they depend on the
// demand row.
type DemandHandler struct {
    Svc *service.DemandService
}

func NewDemandHandler(svc *service.DemandService) *DemandHandler { return &DemandHandler{Svc: svc} }

type createDemandReq struct {
    ProviderProfileID string `json:"providerProfileId"`
    ServiceID         string `json:"serviceId"`
    Message           string `json:"message"`
}

// Create handles POST /demands.
func (h *DemandHandler) Create(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req createDemandReq
    if err := bind(c, &req); err != nil {
        return err
    }
    d, err := h.Svc.Create(c.Request().Context(), caller, service.CreateDemandInput{
        ProviderProfileID: req.ProviderProfileID,
        ServiceID:         req.ServiceID,
        Message:           req.Message,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, d)
}

// Mine handles GET /demands/me?limit=&offset=.
func (h *DemandHandler) Mine(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    out, err := h.Svc.Mine(c.Request().Context(), caller, pageOf(c))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /demands/:id.  Participants only.
func (h *DemandHandler) Get(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    d, err := h.Svc.Get(c.Request().Context(), caller, c.Param("id"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, d)
}

type statusReq struct {
    Status string `json:"status"`
}

// UpdateStatus handles PUT /demands/:id/status.
func (h *DemandHandler) UpdateStatus(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req statusReq
    if err := bind(c, &req); err != nil {
        return err
    }
    if req.Status == "" {
        return required("status")
    }
    d, err := h.Svc.UpdateStatus(c.Request().Context(), caller, c.Param("id"), model.DemandStatus(req.Status))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, d)
}

type locationReq struct {
    Lat             *float64 `json:"lat"`
    Lng             *float64 `json:"lng"`
    Address         string   `json:"address"`
    AppointmentDate string   `json:"appointmentDate"`
}

// SetLocation handles PUT /demands/:id/location.
func (h *DemandHandler) SetLocation(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    var req locationReq
    if err := bind(c, &req); err != nil {
        return err
    }
    if req.Lat == nil || req.Lng == nil {
        return required("lat and lng")
    }
    in := service.LocationInput{
        Coordinates: model.Coordinates{Lat: *req.Lat, Lng: *req.Lng},
        Address:     req.Address,
    }
    if req.AppointmentDate != "" {
        t, err := time.Parse(time.RFC3339, req.AppointmentDate)
        if err != nil {
            return apperr.Validation(apperr.CodeValidation, "appointmentDate must be RFC3339")
        }
        in.AppointmentDate = &t
    }
    d, err := h.Svc.SetLocation(c.Request().Context(), caller, c.Param("id"), in)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, d)
}

// ConfirmLocation handles PUT /demands/:id/location/confirm.
func (h *DemandHandler) ConfirmLocation(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    d, err := h.Svc.ConfirmLocation(c.Request().Context(), caller, c.Param("id"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, d)
}

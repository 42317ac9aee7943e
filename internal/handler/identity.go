package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/apperr"
    "github.com/iliyamo/service-marketplace/internal/middleware"
    "github.com/iliyamo/service-marketplace/internal/model"
    "github.com/iliyamo/service-marketplace/internal/service"
)

// IdentityHandler serves /auth.
type IdentityHandler struct {
    Svc *service.IdentityService
}

func NewIdentityHandler(svc *service.IdentityService) *IdentityHandler {
    return &IdentityHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"` // client (default)
    City     string `json:"city"`
}

type registerProviderReq struct {
    registerReq
    Category         string      `json:"category"`
    Service          string      `json:"service"`
    Experience       model.Years `json:"experience"`
    ProfileImage     string      `json:"profileImage"`
    CertificateImage string      `json:"certificateImage"`
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type verifyReq struct {
    Credential string `json:"credential"`
}

func (r registerReq) input() service.RegisterInput {
    return service.RegisterInput{Name: r.Name, Email: r.Email, Password: r.Password, Role: r.Role, City: r.City}
}

// Register handles POST /auth/register.
func (h *IdentityHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bind(c, &req); err != nil {
        return err
    }
    res, err := h.Svc.Register(c.Request().Context(), req.input())
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, res)
}

// RegisterProvider handles POST /auth/register-provider.  The identity and
// the provider profile are created together or not at all.
func (h *IdentityHandler) RegisterProvider(c echo.Context) error {
    var req registerProviderReq
    if err := bind(c, &req); err != nil {
        return err
    }
    res, err := h.Svc.RegisterProvider(c.Request().Context(), service.ProviderRegistrationInput{
        RegisterInput:    req.input(),
        CategoryID:       req.Category,
        ServiceID:        req.Service,
        ExperienceYears:  int(req.Experience),
        ProfileImage:     req.ProfileImage,
        CertificateImage: req.CertificateImage,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, res)
}

// Login handles POST /auth/login.
func (h *IdentityHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bind(c, &req); err != nil {
        return err
    }
    res, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, res)
}

// Verify handles POST /auth/verify.  The credential may come in the body
// or as the bearer of the request.
func (h *IdentityHandler) Verify(c echo.Context) error {
    var req verifyReq
    if err := bind(c, &req); err != nil {
        return err
    }
    raw := req.Credential
    if raw == "" {
        raw = middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
    }
    if raw == "" {
        return apperr.Validation(apperr.CodeValidation, "credential is required")
    }
    res, err := h.Svc.Verify(raw)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, res)
}

// Me handles GET /auth/me.
func (h *IdentityHandler) Me(c echo.Context) error {
    caller, err := callerOf(c)
    if err != nil {
        return err
    }
    me, err := h.Svc.Me(c.Request().Context(), caller)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, me)
}

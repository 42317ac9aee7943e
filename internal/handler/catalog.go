package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/model"
    "github.com/iliyamo/service-marketplace/internal/service"
)

// CatalogHandler serves categories and services.  Reads are public.
type CatalogHandler struct {
    Svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler { return &CatalogHandler{Svc: svc} }

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
    out, err := h.Svc.ListCategories(c.Request().Context())
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// ListServices handles GET /services?category=.
func (h *CatalogHandler) ListServices(c echo.Context) error {
    out, err := h.Svc.ListServices(c.Request().Context(), c.QueryParam("category"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// GetService handles GET /services/:id.  Peers use it as the
// service/category integrity oracle.
func (h *CatalogHandler) GetService(c echo.Context) error {
    out, err := h.Svc.GetService(c.Request().Context(), c.Param("id"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

// GetServiceWithProviders handles GET /services/:id/with-providers.
func (h *CatalogHandler) GetServiceWithProviders(c echo.Context) error {
    out, err := h.Svc.GetServiceWithProviders(c.Request().Context(), c.Param("id"))
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

type categoryReq struct {
    Name        string `json:"name"`
    Icon        string `json:"icon"`
    Description string `json:"description"`
}

// CreateCategory handles POST /categories (admin).
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
    var req categoryReq
    if err := bind(c, &req); err != nil {
        return err
    }
    out, err := h.Svc.CreateCategory(c.Request().Context(), model.Category{Name: req.Name, Icon: req.Icon, Description: req.Description})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, out)
}

type serviceReq struct {
    CategoryID  string `json:"categoryId"`
    Name        string `json:"name"`
    Description string `json:"description"`
    PriceCents  int64  `json:"priceCents"`
    Icon        string `json:"icon"`
}

// CreateService handles POST /services (admin).
func (h *CatalogHandler) CreateService(c echo.Context) error {
    var req serviceReq
    if err := bind(c, &req); err != nil {
        return err
    }
    out, err := h.Svc.CreateService(c.Request().Context(), model.Service{
        CategoryID:  req.CategoryID,
        Name:        req.Name,
        Description: req.Description,
        PriceCents:  req.PriceCents,
        Icon:        req.Icon,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, out)
}

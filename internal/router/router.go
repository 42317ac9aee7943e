package router // package router wires handlers and middleware onto Echo for each service

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// NewServer returns an Echo instance carrying the middleware every service
// shares: panic recovery, request ids, CORS, request logging and metrics.
// /healthz and /metrics are mounted before any authenticated group.
func NewServer(service string, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	metrics := middleware.NewHTTPMetrics(service, reg)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.HeaderIdempotencyKey},
	}))
	e.Use(middleware.RequestLogger(service))
	e.Use(metrics.Middleware())

	e.GET("/healthz", handler.Health(service))
	e.GET("/metrics", metrics.Handler())
	return e
}

// RegisterIdentity mounts /auth.  Only /auth/me needs a credential; the
// other routes are how a caller obtains or checks one.
func RegisterIdentity(e *echo.Echo, h *handler.IdentityHandler, secret string) {
	g := e.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/register-provider", h.RegisterProvider)
	g.POST("/login", h.Login)
	g.POST("/verify", h.Verify)
	g.GET("/me", h.Me, middleware.Authenticate(secret))
}

// RegisterCatalog mounts the catalog at the root.  Reads are public and,
// apart from the provider merge, cached; writes are admin only.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, secret string, cache config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewRedisCache(cache, rdb)
	e.GET("/categories", h.ListCategories, cached)
	e.GET("/services", h.ListServices, cached)
	e.GET("/services/:id", h.GetService, cached)
	// Not cached: the provider half belongs to the registry, whose writes
	// never reach InvalidateCache.
	e.GET("/services/:id/with-providers", h.GetServiceWithProviders)

	admin := []echo.MiddlewareFunc{middleware.Authenticate(secret), middleware.RequireRole(model.RoleAdmin)}
	e.POST("/categories", h.CreateCategory, admin...)
	e.POST("/services", h.CreateService, admin...)
}

// RegisterProvider mounts /providers.  Browsing is public.
func RegisterProvider(e *echo.Echo, h *handler.ProviderHandler, secret string) {
	auth := middleware.Authenticate(secret)

	g := e.Group("/providers")
	g.GET("", h.List)
	g.GET("/by-service/:serviceId", h.ListByService)
	g.POST("", h.Create, auth)
	g.GET("/me", h.Mine, auth)
	g.PATCH("/me/availability", h.SetAvailability, auth, middleware.RequireRole(model.RoleProvider))
	g.GET("/:id", h.Get)
	g.PATCH("/:id/verify", h.Verify, auth, middleware.RequireRole(model.RoleAdmin))
}

// RegisterDemand mounts /demands.  Every route is authenticated; creation
// is limited to clients and replayable with an Idempotency-Key.
func RegisterDemand(e *echo.Echo, h *handler.DemandHandler, secret string, idem config.IdempotencyConfig, rdb *redis.Client) {
	g := e.Group("/demands", middleware.Authenticate(secret))
	g.POST("", h.Create, middleware.RequireRole(model.RoleClient), middleware.Idempotency(idem, rdb))
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus)
	g.PUT("/:id/location", h.SetLocation)
	g.PUT("/:id/location/confirm", h.ConfirmLocation)
}

// RegisterMessage mounts /messages.
func RegisterMessage(e *echo.Echo, h *handler.MessageHandler, secret string, idem config.IdempotencyConfig, rdb *redis.Client) {
	g := e.Group("/messages", middleware.Authenticate(secret))
	g.POST("", h.Send, middleware.Idempotency(idem, rdb))
	g.POST("/init", h.Init)
	g.GET("/conversations", h.Conversations)
	g.GET("/demand/:demandId", h.ListByDemand)
	g.PUT("/demand/:demandId/read", h.MarkRead)
}

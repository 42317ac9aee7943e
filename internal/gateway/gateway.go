// Package gateway is the single public entry point of the marketplace.  It
// resolves each request against a route table, verifies the bearer
// credential once, injects the caller identity as headers and proxies the
// request to the owning service.  Upstream responses are relayed as they
// are; only transport failures are turned into 502 UpstreamUnavailable.
package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/service-marketplace/internal/apperr"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

const routeKey = "gateway.route"

// Gateway proxies requests according to its Table.
type Gateway struct {
	table   *Table
	secret  string
	proxies map[string]echo.MiddlewareFunc
}

// New builds one proxy per route.  timeout bounds the wait for upstream
// response headers.
func New(table *Table, secret string, timeout time.Duration) *Gateway {
	g := &Gateway{table: table, secret: secret, proxies: make(map[string]echo.MiddlewareFunc)}
	for _, e := range table.entries {
		g.proxies[e.Prefix] = newProxy(e, timeout)
	}
	return g
}

func newProxy(e entry, timeout time.Duration) echo.MiddlewareFunc {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	name := e.Prefix
	return echomw.ProxyWithConfig(echomw.ProxyConfig{
		Balancer:  echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{Name: name, URL: e.upstream}}),
		Transport: transport,
		ErrorHandler: func(c echo.Context, err error) error {
			slog.Warn("gateway: upstream unreachable", "route", name, "error", err)
			return apperr.FromStatus(http.StatusBadGateway, apperr.CodeUpstreamUnavailable, "upstream service unavailable")
		},
	})
}

// Register mounts the gateway on every path.  limiter runs after identity
// is known so buckets are keyed per caller.
func (g *Gateway) Register(e *echo.Echo, limiter echo.MiddlewareFunc) {
	if limiter == nil {
		limiter = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	e.Any("/*", g.forward, g.route, g.authenticate, limiter)
}

// route resolves the request path and stores the match for later stages.
func (g *Gateway) route(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		e, rewritten, ok := g.table.match(c.Request().URL.Path)
		if !ok {
			return apperr.FromStatus(http.StatusNotFound, apperr.CodeRouteNotFound, "no route for "+c.Request().URL.Path)
		}
		c.Set(routeKey, e)
		c.Request().URL.Path = rewritten
		c.Request().URL.RawPath = ""
		return next(c)
	}
}

// authenticate strips client supplied identity headers and, on protected
// routes, replaces them with the identity of a verified bearer.  A request
// without a bearer is forwarded anonymously; the service decides whether
// the route needs one.
func (g *Gateway) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		h.Del(middleware.HeaderUserID)
		h.Del(middleware.HeaderUserRole)

		e := c.Get(routeKey).(entry)
		if e.Public {
			return next(c)
		}
		raw := middleware.BearerToken(h.Get(echo.HeaderAuthorization))
		if raw == "" {
			return next(c)
		}
		claims, err := utils.ParseCredential(g.secret, raw)
		if err != nil {
			return apperr.Authentication(apperr.CodeInvalidCredential, "invalid or expired credential")
		}
		role, ok := model.ParseRole(claims.Role)
		if !ok {
			return apperr.Authentication(apperr.CodeInvalidCredential, "unknown role in credential")
		}
		h.Set(middleware.HeaderUserID, claims.Subject)
		h.Set(middleware.HeaderUserRole, string(role))
		middleware.SetCaller(c, model.Caller{ID: claims.Subject, Role: role, Credential: raw})
		return next(c)
	}
}

// forward hands the request to the proxy of the matched route.
func (g *Gateway) forward(c echo.Context) error {
	e := c.Get(routeKey).(entry)
	proxy := g.proxies[e.Prefix]
	return proxy(func(echo.Context) error { return nil })(c)
}

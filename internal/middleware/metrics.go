package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics counts and times requests per route.
type HTTPMetrics struct {
    requests *prometheus.CounterVec
    latency  *prometheus.HistogramVec
    gatherer prometheus.Gatherer
}

// NewHTTPMetrics registers the request collectors on reg.  A nil reg uses
// a fresh registry, which keeps tests independent of the global default.
func NewHTTPMetrics(service string, reg *prometheus.Registry) *HTTPMetrics {
    if reg == nil {
        reg = prometheus.NewRegistry()
    }
    m := &HTTPMetrics{
        requests: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace:   "marketplace",
            Name:        "http_requests_total",
            Help:        "HTTP requests by route, method and status.",
            ConstLabels: prometheus.Labels{"service": service},
        }, []string{"method", "route", "status"}),
        latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
            Namespace:   "marketplace",
            Name:        "http_request_duration_seconds",
            Help:        "HTTP request latency by route.",
            ConstLabels: prometheus.Labels{"service": service},
            Buckets:     prometheus.DefBuckets,
        }, []string{"method", "route"}),
        gatherer: reg,
    }
    reg.MustRegister(m.requests, m.latency)
    return m
}

// Middleware observes every request.  The status is read after the error
// handler has run so failures are counted with their final code.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route := routeOf(c)
            m.requests.WithLabelValues(c.Request().Method, route, strconv.Itoa(c.Response().Status)).Inc()
            m.latency.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
            return nil
        }
    }
}

// Handler serves the registry in the Prometheus text format.
func (m *HTTPMetrics) Handler() echo.HandlerFunc {
    return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

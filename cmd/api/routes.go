package main

import (
	"log/slog"
	"net/http"
	"time"

	"ringba-sync-dashboard/internal/httpapi"
	"ringba-sync-dashboard/internal/metrics"
	"ringba-sync-dashboard/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter builds the gin engine with the middleware stack main serves.
func newRouter(log *slog.Logger, srv *httpapi.Server, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(cors.New(corsConfig()))

	registerRoutes(r, srv, m)
	return r
}

// registerRoutes wires HTTP routes to handlers.
// Only operational probes are registered on the gin tree. Everything else goes
// through the dispatcher so the resolver alone decides how a path is served.
func registerRoutes(r *gin.Engine, srv *httpapi.Server, m *metrics.Metrics) {
	healthz := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	r.GET("/healthz", healthz)
	r.HEAD("/healthz", healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	r.NoRoute(srv.Dispatch)
}

// corsConfig allows any origin to read the dashboard. Every surface is GET-only.
func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-Id"}
	c.ExposeHeaders = []string{"X-Request-Id", "Content-Disposition"}
	c.OptionsResponseStatusCode = http.StatusOK
	c.MaxAge = 12 * time.Hour
	return c
}

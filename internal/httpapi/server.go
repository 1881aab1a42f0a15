package httpapi

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"ringba-sync-dashboard/internal/cache"
	"ringba-sync-dashboard/internal/metrics"
	"ringba-sync-dashboard/internal/reporting"
	"ringba-sync-dashboard/internal/routing"
	"ringba-sync-dashboard/internal/spa"
	"ringba-sync-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Payloads is the aggregation surface the dispatcher serves.
// *reporting.Service implements it.
type Payloads interface {
	Health(ctx context.Context) (reporting.Health, error)
	Stats(ctx context.Context) (reporting.Stats, error)
	History(ctx context.Context, req reporting.HistoryRequest) (reporting.History, error)
	RingbaLogs(ctx context.Context, req reporting.RingbaLogsRequest) (reporting.RingbaLogs, error)
	Activity(ctx context.Context, req reporting.ActivityRequest) (reporting.Activity, error)
	Chargeback(ctx context.Context, req reporting.ChargebackRequest) (reporting.Chargeback, error)
}

type Options struct {
	Resolver *routing.Resolver
	Payloads Payloads
	Shell    *spa.Shell

	// Cache is optional; nil disables payload caching.
	Cache cache.Cache
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Server executes routing decisions. It is immutable after construction.
//
// Every inbound path goes through Dispatch, registered as the gin NoRoute
// handler, so that the resolver alone decides how a request is served.
type Server struct {
	resolver *routing.Resolver
	payloads Payloads
	shell    *spa.Shell
	cache    cache.Cache
	metrics  *metrics.Metrics

	// realRoot is the build root with symlinks resolved, for the serve-time containment check.
	realRoot string
}

func NewServer(opts Options) (*Server, error) {
	if opts.Resolver == nil {
		return nil, errors.New("httpapi: resolver required")
	}
	if opts.Payloads == nil {
		return nil, errors.New("httpapi: payloads required")
	}
	s := &Server{
		resolver: opts.Resolver,
		payloads: opts.Payloads,
		shell:    opts.Shell,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
	}
	if s.shell == nil {
		s.shell = spa.NewShell(opts.Resolver.BuildRoot(), opts.Resolver.Prefix())
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	s.realRoot = opts.Resolver.BuildRoot()
	if resolved, err := filepath.EvalSymlinks(s.realRoot); err == nil {
		s.realRoot = resolved
	}
	return s, nil
}

// Dispatch resolves the request path and executes exactly one branch.
func (s *Server) Dispatch(c *gin.Context) {
	start := time.Now()
	d := s.resolver.Resolve(c.Request.URL.Path)
	c.Set(logger.KeyRouteKind, string(d.Kind))
	defer func() {
		s.metrics.ObserveRequest(string(d.Kind), string(d.Endpoint), c.Writer.Status(), time.Since(start))
	}()

	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		c.AbortWithStatus(http.StatusOK)
		return
	default:
		s.notFound(c)
		return
	}

	switch d.Kind {
	case routing.KindEndpoint:
		s.endpoint(c, d.Endpoint)
	case routing.KindAsset:
		s.asset(c, d)
	case routing.KindSPAFallback:
		s.spaFallback(c)
	default:
		logger.FromGin(c).Debug("route not found", "path", d.Path, "reason", d.Reason)
		s.notFound(c)
	}
}

func (s *Server) endpoint(c *gin.Context, e routing.Endpoint) {
	switch e {
	case routing.EndpointRoot:
		s.root(c)
	case routing.EndpointHealth:
		s.health(c)
	case routing.EndpointStats:
		s.stats(c)
	case routing.EndpointHistory:
		s.history(c)
	case routing.EndpointRingbaLogs:
		s.ringbaLogs(c)
	case routing.EndpointActivity:
		s.activity(c)
	case routing.EndpointChargeback:
		s.chargeback(c)
	case routing.EndpointChargebackExport:
		s.chargebackExport(c)
	case routing.EndpointDebugBuild:
		s.debugBuild(c)
	default:
		s.notFound(c)
	}
}

func (s *Server) notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// fail maps a payload error onto a status: 503 when the source is unavailable, else 500.
func (s *Server) fail(c *gin.Context, payload string, err error) {
	l := logger.FromGin(c)
	if errors.Is(err, reporting.ErrUnavailable) {
		s.metrics.IncUnavailable()
		s.metrics.IncPayloadError(payload, "unavailable")
		l.Warn("payload unavailable", "payload", payload, "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	s.metrics.IncPayloadError(payload, "failed")
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

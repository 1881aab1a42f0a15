package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ringba-sync-dashboard/internal/export"
	"ringba-sync-dashboard/internal/reporting"
	"ringba-sync-dashboard/internal/spa"
	"ringba-sync-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Payload names, used for cache keys, metrics and logs.
const (
	payloadHealth     = "health"
	payloadStats      = "stats"
	payloadHistory    = "history"
	payloadRingbaLogs = "ringba-logs"
	payloadActivity   = "activity"
	payloadChargeback = "chargeback"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Keep these thin: parse the query, call the service, write JSON.

func (s *Server) health(c *gin.Context) {
	s.serveJSON(c, payloadHealth, "", func(ctx context.Context) (any, error) {
		return s.payloads.Health(ctx)
	})
}

func (s *Server) stats(c *gin.Context) {
	s.serveJSON(c, payloadStats, "", func(ctx context.Context) (any, error) {
		return s.payloads.Stats(ctx)
	})
}

func (s *Server) history(c *gin.Context) {
	req := reporting.HistoryRequest{
		Limit:   NormalizedLimit(c, reporting.DefaultHistoryLimit),
		Service: c.Query("service"),
	}
	key := fmt.Sprintf("limit=%d&service=%s", req.Limit, req.Service)
	s.serveJSON(c, payloadHistory, key, func(ctx context.Context) (any, error) {
		return s.payloads.History(ctx, req)
	})
}

func (s *Server) ringbaLogs(c *gin.Context) {
	req := reporting.RingbaLogsRequest{
		Limit:  NormalizedLimit(c, reporting.DefaultRingbaLogsLimit),
		Status: c.Query("status"),
	}
	key := fmt.Sprintf("limit=%d&status=%s", req.Limit, req.Status)
	s.serveJSON(c, payloadRingbaLogs, key, func(ctx context.Context) (any, error) {
		return s.payloads.RingbaLogs(ctx, req)
	})
}

func (s *Server) activity(c *gin.Context) {
	req := reporting.ActivityRequest{Limit: NormalizedLimit(c, reporting.DefaultActivityLimit)}
	key := fmt.Sprintf("limit=%d", req.Limit)
	s.serveJSON(c, payloadActivity, key, func(ctx context.Context) (any, error) {
		return s.payloads.Activity(ctx, req)
	})
}

func (s *Server) chargeback(c *gin.Context) {
	req := reporting.ChargebackRequest{Days: QueryLimit(c)}
	key := fmt.Sprintf("days=%d", req.Days)
	s.serveJSON(c, payloadChargeback, key, func(ctx context.Context) (any, error) {
		return s.payloads.Chargeback(ctx, req)
	})
}

func (s *Server) chargebackExport(c *gin.Context) {
	cb, err := s.payloads.Chargeback(c.Request.Context(), reporting.ChargebackRequest{Days: QueryLimit(c)})
	if err != nil {
		s.fail(c, payloadChargeback, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteChargeback(&buf, cb); err != nil {
		s.fail(c, payloadChargeback, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(cb)))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

func (s *Server) debugBuild(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"build":       spa.Inspect(s.resolver.BuildRoot()),
		"proxyPrefix": s.resolver.Prefix(),
		"baseHref":    s.shell.BaseHref(),
	})
}

// serveJSON writes a payload, going through the cache when one is configured.
func (s *Server) serveJSON(c *gin.Context, payload, key string, build func(context.Context) (any, error)) {
	b, err := s.payloadJSON(c, payload, key, build)
	if err != nil {
		s.fail(c, payload, err)
		return
	}
	c.Data(http.StatusOK, contentTypeJSON, b)
}

// payloadJSON returns the encoded payload. Cache failures degrade to a rebuild.
func (s *Server) payloadJSON(c *gin.Context, payload, key string, build func(context.Context) (any, error)) ([]byte, error) {
	ctx := c.Request.Context()
	l := logger.FromGin(c)
	cacheKey := payload + "?" + key

	if b, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
		l.Warn("payload cache get failed", "payload", payload, "err", err)
	} else if ok {
		s.metrics.IncCache(true)
		return b, nil
	} else {
		s.metrics.IncCache(false)
	}

	v, err := build(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", payload, err)
	}
	if err := s.cache.Set(ctx, cacheKey, b); err != nil {
		l.Warn("payload cache set failed", "payload", payload, "err", err)
	}
	return b, nil
}

// QueryLimit parses ?limit. Missing, non-numeric or non-positive values yield 0.
func QueryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// NormalizedLimit is QueryLimit with the listing default and upper bound applied.
func NormalizedLimit(c *gin.Context, def int) int {
	return reporting.NormalizeLimit(QueryLimit(c), def)
}

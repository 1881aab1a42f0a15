package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("endpoint", "/api/health", 200, time.Millisecond)
	m.IncPayloadError("health", "query")
	m.IncUnavailable()
	m.IncCache(true)
}

func TestMetrics_Counts(t *testing.T) {
	m := New()
	m.ObserveRequest("endpoint", "/api/stats", 200, time.Millisecond)
	m.ObserveRequest("endpoint", "/api/stats", 200, time.Millisecond)
	m.ObserveRequest("asset", "", 404, time.Millisecond)
	m.IncPayloadError("stats", "query")
	m.IncUnavailable()
	m.IncCache(false)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("endpoint", "/api/stats", "200")); got != 2 {
		t.Fatalf("expected 2 stats requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("asset", "-", "404")); got != 1 {
		t.Fatalf("expected 1 asset 404, got %v", got)
	}
	if got := testutil.ToFloat64(m.PayloadErrors.WithLabelValues("stats", "query")); got != 1 {
		t.Fatalf("expected 1 payload error, got %v", got)
	}
	if got := testutil.ToFloat64(m.SourceUnavailable); got != 1 {
		t.Fatalf("expected 1 unavailable, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
}

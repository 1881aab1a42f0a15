package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the dashboard API.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	PayloadErrors     *prometheus.CounterVec
	SourceUnavailable prometheus.Counter
	CacheLookups      *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Requests by routing decision, endpoint and status code.",
		},
		[]string{"kind", "endpoint", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "Request latency by routing decision.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	payloadErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_payload_errors_total",
			Help: "Payload assemblies that failed, by payload and error class.",
		},
		[]string{"payload", "class"},
	)
	unavailable := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_source_unavailable_total",
			Help: "Data-source connections that could not be acquired.",
		},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_lookups_total",
			Help: "Payload cache lookups by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(requests, duration, payloadErrors, unavailable, cacheLookups)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   duration,
		PayloadErrors:     payloadErrors,
		SourceUnavailable: unavailable,
		CacheLookups:      cacheLookups,
	}
}

// ObserveRequest records one dispatched request.
// endpoint is empty for assets and fallbacks to keep label cardinality low.
func (m *Metrics) ObserveRequest(kind, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "-"
	}
	m.RequestsTotal.WithLabelValues(kind, endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncPayloadError counts a failed payload assembly.
func (m *Metrics) IncPayloadError(payload, class string) {
	if m == nil {
		return
	}
	m.PayloadErrors.WithLabelValues(payload, class).Inc()
}

// IncUnavailable counts a failed data-source acquisition.
func (m *Metrics) IncUnavailable() {
	if m == nil {
		return
	}
	m.SourceUnavailable.Inc()
}

// IncCache counts a cache hit or miss.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

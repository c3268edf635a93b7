package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	RateLimitedTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beatmeta_catalog_requests_total",
				Help: "Total number of Beatport API requests",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beatmeta_catalog_request_duration_seconds",
				Help:    "Time spent waiting for the Beatport API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beatmeta_resolutions_total",
				Help: "Total number of lookups by outcome",
			},
			[]string{"operation", "outcome"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beatmeta_resolution_duration_seconds",
				Help:    "Time spent resolving a lookup including enrichment",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beatmeta_lookups_rate_limited_total",
				Help: "Total number of HTTP lookups rejected by the rate limit",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.RateLimitedTotal,
	)
	return m
}

// ObserveRequest records one catalog request.
func (m *Metrics) ObserveRequest(operation, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveResolution records one resolver entry point call.
func (m *Metrics) ObserveResolution(operation, outcome string, duration time.Duration) {
	m.ResolutionsTotal.WithLabelValues(operation, outcome).Inc()
	m.ResolutionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

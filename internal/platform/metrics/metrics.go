// Package metrics registers shared Prometheus metrics. Context-specific
// metrics live next to their context (internal/scan/metrics, ...); this
// package carries only cross-cutting HTTP instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds cross-cutting Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the shared metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaintrace_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// ObserveHTTPLatency records one request's latency.
func (m *Metrics) ObserveHTTPLatency(method, path string, d time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

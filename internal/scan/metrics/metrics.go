package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the scan pipeline.
type Metrics struct {
	ScansProcessed   *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
}

// New creates and registers scan pipeline metrics.
func New() *Metrics {
	return &Metrics{
		ScansProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chaintrace_scans_processed_total",
			Help: "Total scans processed, by detected type and validation status",
		}, []string{"type", "status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chaintrace_scan_pipeline_duration_seconds",
			Help:    "Latency of the classify/extract/validate pipeline",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// ObserveScan records one processed scan.
func (m *Metrics) ObserveScan(contentType, status string, d time.Duration) {
	m.ScansProcessed.WithLabelValues(contentType, status).Inc()
	m.PipelineDuration.Observe(d.Seconds())
}

// Package metrics exposes Prometheus metrics for the custody ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds custody tracking metrics.
type Metrics struct {
	CustodyEvents     *prometheus.CounterVec
	Diversions        prometheus.Counter
	ChainVerifyFailed prometheus.Counter
	TrackerSamples    *prometheus.CounterVec
}

// New creates and registers custody metrics.
func New() *Metrics {
	return &Metrics{
		CustodyEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chaintrace_custody_events_total",
			Help: "Custody events appended, by action.",
		}, []string{"action"}),
		Diversions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chaintrace_diversions_total",
			Help: "Diversion alerts raised.",
		}),
		ChainVerifyFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chaintrace_chain_verify_failures_total",
			Help: "Custody chain verifications that detected tampering.",
		}),
		TrackerSamples: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chaintrace_tracker_samples_total",
			Help: "Background location samples, by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveEvent records an appended custody event.
func (m *Metrics) ObserveEvent(action string) {
	if m == nil {
		return
	}
	m.CustodyEvents.WithLabelValues(action).Inc()
}

// ObserveDiversion records a raised diversion alert.
func (m *Metrics) ObserveDiversion() {
	if m == nil {
		return
	}
	m.Diversions.Inc()
}

// ObserveVerifyFailure records a failed chain verification.
func (m *Metrics) ObserveVerifyFailure() {
	if m == nil {
		return
	}
	m.ChainVerifyFailed.Inc()
}

// ObserveTrackerSample records a background sampling attempt.
func (m *Metrics) ObserveTrackerSample(outcome string) {
	if m == nil {
		return
	}
	m.TrackerSamples.WithLabelValues(outcome).Inc()
}

// Package metrics exposes Prometheus instrumentation for the
// pseudonymization service. A nil *Metrics is a no-op, so callers never
// guard recording sites behind a feature flag.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service-wide Prometheus collectors. All metrics use
// the "pseudonymd_" prefix.
type Metrics struct {
	// Detections counts detected entities by pipeline layer.
	// Labels: layer=[regex, header, ner, signature]
	Detections *prometheus.CounterVec

	// Substitutions counts token substitutions applied to outbound text.
	Substitutions prometheus.Counter

	// DegradedRuns counts pseudonymization runs with the statistical
	// layer unavailable.
	DegradedRuns prometheus.Counter

	// MissingTokens counts tokens that could not be resolved during
	// depseudonymization.
	MissingTokens prometheus.Counter

	// SessionsDestroyed counts explicit session teardowns.
	SessionsDestroyed prometheus.Counter

	// OperationDuration tracks engine operation time.
	// Labels: operation=[pseudonymize, depseudonymize, destroy]
	OperationDuration *prometheus.HistogramVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// New creates and registers the service metrics. Idempotent: repeated
// calls return the same instance. A nil registerer means the default
// registerer.
func New(registerer prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		m := &Metrics{
			Detections: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pseudonymd_detections_total",
					Help: "Detected entities by pipeline layer",
				},
				[]string{"layer"},
			),
			Substitutions: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pseudonymd_substitutions_total",
					Help: "Token substitutions applied to outbound text",
				},
			),
			DegradedRuns: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pseudonymd_degraded_runs_total",
					Help: "Pseudonymization runs without the statistical layer",
				},
			),
			MissingTokens: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pseudonymd_missing_tokens_total",
					Help: "Tokens left unresolved during depseudonymization",
				},
			),
			SessionsDestroyed: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pseudonymd_sessions_destroyed_total",
					Help: "Explicit session teardowns",
				},
			),
			OperationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pseudonymd_operation_duration_seconds",
					Help:    "Engine operation duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
		}

		registerer.MustRegister(
			m.Detections,
			m.Substitutions,
			m.DegradedRuns,
			m.MissingTokens,
			m.SessionsDestroyed,
			m.OperationDuration,
		)

		metricsInstance = m
	})

	return metricsInstance
}

// RecordPseudonymization records one pseudonymize run.
func (m *Metrics) RecordPseudonymization(byLayer map[string]int, substitutions int, degraded bool, duration time.Duration) {
	if m == nil {
		return
	}
	for layer, n := range byLayer {
		m.Detections.WithLabelValues(layer).Add(float64(n))
	}
	m.Substitutions.Add(float64(substitutions))
	if degraded {
		m.DegradedRuns.Inc()
	}
	m.OperationDuration.WithLabelValues("pseudonymize").Observe(duration.Seconds())
}

// RecordDepseudonymization records one depseudonymize run.
func (m *Metrics) RecordDepseudonymization(missing int, duration time.Duration) {
	if m == nil {
		return
	}
	m.MissingTokens.Add(float64(missing))
	m.OperationDuration.WithLabelValues("depseudonymize").Observe(duration.Seconds())
}

// RecordDestroy records one session teardown.
func (m *Metrics) RecordDestroy(duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionsDestroyed.Inc()
	m.OperationDuration.WithLabelValues("destroy").Observe(duration.Seconds())
}

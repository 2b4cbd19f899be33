// Package metrics exposes Prometheus collectors for the validation core:
// validation outcomes per model, integrity violations by type and
// severity, the latest health score, and scan durations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the taskward metric set on its own registry. All record
// methods are safe on a nil receiver so instrumentation stays optional.
type Collector struct {
	registry *prometheus.Registry

	validationsTotal *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	healthScore      prometheus.Gauge
	scanDuration     prometheus.Histogram
	rulesExecuted    prometheus.Counter
}

// NewCollector creates a Collector with a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		validationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "taskward_validations_total",
			Help: "Validation calls by model and outcome",
		}, []string{"model", "outcome"}),
		violationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "taskward_integrity_violations_total",
			Help: "Integrity violations found, by type and severity",
		}, []string{"type", "severity"}),
		healthScore: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "taskward_health_score",
			Help: "Health score of the most recent integrity scan (0-100)",
		}),
		scanDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "taskward_integrity_scan_duration_seconds",
			Help:    "Time taken by integrity scans",
			Buckets: prometheus.DefBuckets,
		}),
		rulesExecuted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "taskward_rules_executed_total",
			Help: "Business rules executed by the engine",
		}),
	}
}

// RecordValidation counts one validation call.
func (c *Collector) RecordValidation(model string, ok bool) {
	if c == nil {
		return
	}
	outcome := "valid"
	if !ok {
		outcome = "invalid"
	}
	c.validationsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordViolation counts one integrity violation.
func (c *Collector) RecordViolation(violationType, severity string) {
	if c == nil {
		return
	}
	c.violationsTotal.WithLabelValues(violationType, severity).Inc()
}

// RecordScan records the outcome of one integrity scan.
func (c *Collector) RecordScan(duration time.Duration, healthScore int) {
	if c == nil {
		return
	}
	c.scanDuration.Observe(duration.Seconds())
	c.healthScore.Set(float64(healthScore))
}

// RecordRules counts rules executed by the engine.
func (c *Collector) RecordRules(n int) {
	if c == nil {
		return
	}
	c.rulesExecuted.Add(float64(n))
}

// Handler returns an HTTP handler serving the registry, for callers that
// expose a metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "crm"

// Sweep pass labels.
const (
	PassAdvanced = "advanced"
	PassArchived = "archived"
)

// Sweep run results.
const (
	RunOK      = "ok"
	RunPartial = "partial"
	RunError   = "error"
	RunSkipped = "skipped"
)

// Metrics is safe to use through a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	SweepRuns          *prometheus.CounterVec
	SweepJobs          *prometheus.CounterVec
	SweepFailures      prometheus.Counter
	SweepDuration      prometheus.Histogram
	ActivityEmitErrors *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers all collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SweepRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sweep",
				Name:      "runs_total",
				Help:      "Sweep invocations by result",
			},
			[]string{"result"},
		),
		SweepJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sweep",
				Name:      "jobs_total",
				Help:      "Jobs changed by the sweeper, by pass",
			},
			[]string{"pass"},
		),
		SweepFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sweep",
				Name:      "failures_total",
				Help:      "Per-job sweep failures",
			},
		),
		SweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "sweep",
				Name:      "duration_seconds",
				Help:      "Duration of a sweep in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		ActivityEmitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "activity",
				Name:      "emit_failures_total",
				Help:      "Activities that could not be written after the job was saved",
			},
			[]string{"type"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) ActivityEmitFailed(activityType string) {
	if m == nil {
		return
	}
	m.ActivityEmitErrors.WithLabelValues(activityType).Inc()
}

// SweepFinished records one sweep run.
func (m *Metrics) SweepFinished(result string, advanced, archived, failures int, took time.Duration) {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(result).Inc()
	m.SweepJobs.WithLabelValues(PassAdvanced).Add(float64(advanced))
	m.SweepJobs.WithLabelValues(PassArchived).Add(float64(archived))
	m.SweepFailures.Add(float64(failures))
	m.SweepDuration.Observe(took.Seconds())
}

func (m *Metrics) SweepSkipped() {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(RunSkipped).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

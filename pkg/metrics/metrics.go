// Package metrics collects Prometheus metrics for a sync run. The process is
// short lived, so metrics are written to a file for the node exporter's
// textfile collector instead of being served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	SessionsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LastRun         prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kimai_report_sessions_total",
				Help: "Sessions reconciled, by outcome.",
			},
			[]string{"outcome"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kimai_report_errors_total",
				Help: "Failed sessions, by error kind.",
			},
			[]string{"kind"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kimai_report_request_duration_seconds",
				Help:    "Duration of Kimai API calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kimai_report_last_run_timestamp_seconds",
				Help: "Unix time the last run finished.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.SessionsTotal, m.ErrorsTotal, m.RequestDuration, m.LastRun)
	return m
}

// ObserveOutcome counts a reconciled session.
func (m *Metrics) ObserveOutcome(outcome string) {
	m.SessionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveError counts a failed session.
func (m *Metrics) ObserveError(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveRequest records the duration of a remote call started at start.
func (m *Metrics) ObserveRequest(operation string, start time.Time) {
	m.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// WriteTextfile stamps the run and writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	m.LastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}

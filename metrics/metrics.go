// Package metrics counts pattern runs with Prometheus collectors.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moffa90/go-kh930/controller"
)

// Metrics holds the run collectors and the registry they live in.
// It implements controller.RunRecorder.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	rowsSent    prometheus.Counter
	rowsPlanned prometheus.Counter
	duration    *prometheus.HistogramVec
}

// New returns Metrics registered in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "knitctl",
				Subsystem: "run",
				Name:      "total",
				Help:      "Finished pattern runs.",
			},
			[]string{"outcome"},
		),
		rowsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "knitctl",
			Subsystem: "run",
			Name:      "rows_sent_total",
			Help:      "Rows acknowledged by the machine.",
		}),
		rowsPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "knitctl",
			Subsystem: "run",
			Name:      "rows_planned_total",
			Help:      "Rows handed to the controller.",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "knitctl",
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Pattern run duration in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.runs, m.rowsSent, m.rowsPlanned, m.duration)
	return m
}

// RecordRun implements controller.RunRecorder.
func (m *Metrics) RecordRun(_ context.Context, rec controller.RunRecord) error {
	outcome := rec.Outcome
	if outcome == "" {
		outcome = "unknown"
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.rowsSent.Add(float64(rec.RowsSent))
	m.rowsPlanned.Add(float64(rec.Rows))
	m.duration.WithLabelValues(outcome).Observe(rec.Finished.Sub(rec.Started).Seconds())
	return nil
}

// Gatherer exposes the registry, for example to promhttp.HandlerFor.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current values in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// Package metrics exposes hstack's Prometheus instrumentation.
//
// A [Metrics] owns its own registry so several commands (and tests) can
// collect independently. All recording methods are safe on a nil receiver.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hstack"

// Metrics groups all collectors.
type Metrics struct {
	registry *prometheus.Registry

	stackPolls        *prometheus.CounterVec
	stackResults      *prometheus.CounterVec
	stackWaitDuration *prometheus.HistogramVec

	poolInFlight prometheus.Gauge
	poolTasks    *prometheus.CounterVec

	addressResolutions *prometheus.CounterVec

	engineOperations *prometheus.CounterVec
}

// New creates and registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stackPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stack",
				Name:      "polls_total",
				Help:      "Total number of stack status polls",
			},
			[]string{"stack"},
		),
		stackResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stack",
				Name:      "results_total",
				Help:      "Terminal stack statuses observed",
			},
			[]string{"stack", "status"},
		),
		stackWaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stack",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting for a stack to reach a terminal status",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
			},
			[]string{"stack"},
		),
		poolInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "in_flight",
				Help:      "Creation tasks currently holding a pool slot",
			},
		),
		poolTasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "tasks_total",
				Help:      "Creation tasks by node group and result",
			},
			[]string{"node_group", "result"},
		),
		addressResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "address_resolutions_total",
				Help:      "Address resolution passes by outcome",
			},
			[]string{"outcome"},
		),
		engineOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Cloud resources handled by the stack engine",
			},
			[]string{"kind", "action"},
		),
	}

	m.registry.MustRegister(
		m.stackPolls,
		m.stackResults,
		m.stackWaitDuration,
		m.poolInFlight,
		m.poolTasks,
		m.addressResolutions,
		m.engineOperations,
	)
	return m
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordStackPoll counts one status refresh.
func (m *Metrics) RecordStackPoll(stack string) {
	if m == nil {
		return
	}
	m.stackPolls.WithLabelValues(stack).Inc()
}

// RecordStackResult records the terminal status and total wait time.
func (m *Metrics) RecordStackResult(stack, status string, waited time.Duration) {
	if m == nil {
		return
	}
	m.stackResults.WithLabelValues(stack, status).Inc()
	m.stackWaitDuration.WithLabelValues(stack).Observe(waited.Seconds())
}

// PoolAcquired marks a pool slot as taken.
func (m *Metrics) PoolAcquired() {
	if m == nil {
		return
	}
	m.poolInFlight.Inc()
}

// PoolReleased marks a pool slot as free.
func (m *Metrics) PoolReleased() {
	if m == nil {
		return
	}
	m.poolInFlight.Dec()
}

// RecordPoolTask counts a finished creation task.
func (m *Metrics) RecordPoolTask(nodeGroup string, err error) {
	if m == nil {
		return
	}
	m.poolTasks.WithLabelValues(nodeGroup, result(err)).Inc()
}

// RecordAddressResolution counts one resolver pass.
func (m *Metrics) RecordAddressResolution(resolved bool) {
	if m == nil {
		return
	}
	outcome := "pending"
	if resolved {
		outcome = "resolved"
	}
	m.addressResolutions.WithLabelValues(outcome).Inc()
}

// RecordEngineOperation counts a resource action taken by the stack engine.
func (m *Metrics) RecordEngineOperation(kind, action string) {
	if m == nil {
		return
	}
	m.engineOperations.WithLabelValues(kind, action).Inc()
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

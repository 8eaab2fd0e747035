package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"logbook-hq/relay/pkg/config"
)

// ClassifyMetrics tracks classification tasks and published records.
type ClassifyMetrics struct {
	tasksTotal     *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	backlog        prometheus.Gauge
	recordsTotal   *prometheus.CounterVec
	serverDetected *prometheus.GaugeVec
}

// NewClassifyMetrics creates and registers classification metrics.
func NewClassifyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ClassifyMetrics {
	cm := &ClassifyMetrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "classify_tasks_total",
				Help:      "Total number of classification tasks by outcome",
			},
			[]string{"outcome"},
		),

		taskDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "classify_task_duration_seconds",
				Help:      "Time spent classifying one payload",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		backlog: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "classify_backlog",
				Help:      "Number of classification tasks waiting for a worker",
			},
		),

		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_total",
				Help:      "Total number of published records by kind",
			},
			[]string{"kind"},
		),

		serverDetected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "server_detected",
				Help:      "Set to 1 for the detected server",
			},
			[]string{"server"},
		),
	}

	registry.MustRegister(
		cm.tasksTotal,
		cm.taskDuration,
		cm.backlog,
		cm.recordsTotal,
		cm.serverDetected,
	)

	return cm
}

// RecordTask records a finished task.
func (cm *ClassifyMetrics) RecordTask(outcome string, duration time.Duration) {
	cm.tasksTotal.WithLabelValues(outcome).Inc()
	cm.taskDuration.Observe(duration.Seconds())
}

// RecordRecord records a published record.
func (cm *ClassifyMetrics) RecordRecord(kind string) {
	cm.recordsTotal.WithLabelValues(kind).Inc()
}

// SetBacklog sets the backlog gauge.
func (cm *ClassifyMetrics) SetBacklog(n int) {
	cm.backlog.Set(float64(n))
}

// SetServerDetected marks name as the detected server.
func (cm *ClassifyMetrics) SetServerDetected(name string) {
	cm.serverDetected.WithLabelValues(name).Set(1)
}

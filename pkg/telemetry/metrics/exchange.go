package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"logbook-hq/relay/pkg/config"
)

// ExchangeMetrics tracks proxied exchanges and captures.
type ExchangeMetrics struct {
	exchangesTotal   *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	rejectedTotal    *prometheus.CounterVec
	capturedBytes    prometheus.Histogram
	droppedTotal     *prometheus.CounterVec
}

// NewExchangeMetrics creates and registers exchange metrics.
func NewExchangeMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExchangeMetrics {
	em := &ExchangeMetrics{
		exchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exchanges_total",
				Help:      "Total number of finished exchanges by outcome",
			},
			[]string{"method", "outcome"},
		),

		exchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exchange_duration_seconds",
				Help:      "Duration of exchanges from admission to completion",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),

		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_rejected_total",
				Help:      "Total number of exchanges refused by the access guard",
			},
			[]string{"reason"},
		),

		capturedBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "captured_bytes",
				Help:      "Size of captured response bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B - 4MB
			},
		),

		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "capture_dropped_total",
				Help:      "Total number of captures discarded before dispatch",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		em.exchangesTotal,
		em.exchangeDuration,
		em.rejectedTotal,
		em.capturedBytes,
		em.droppedTotal,
	)

	return em
}

// RecordExchange records a finished exchange.
func (em *ExchangeMetrics) RecordExchange(method, outcome string, duration time.Duration) {
	em.exchangesTotal.WithLabelValues(method, outcome).Inc()
	em.exchangeDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRejection records a refused exchange.
func (em *ExchangeMetrics) RecordRejection(reason string) {
	em.rejectedTotal.WithLabelValues(reason).Inc()
}

// RecordCapture records a captured body size.
func (em *ExchangeMetrics) RecordCapture(size int) {
	em.capturedBytes.Observe(float64(size))
}

// RecordCaptureDropped records a discarded capture.
func (em *ExchangeMetrics) RecordCaptureDropped(reason string) {
	em.droppedTotal.WithLabelValues(reason).Inc()
}

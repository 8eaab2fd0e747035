package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"logbook-hq/relay/pkg/config"
)

// otherLabel replaces label values beyond the cardinality limit.
const otherLabel = "other"

// Collector owns the relay's Prometheus metrics.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	exchangeMetrics *ExchangeMetrics
	classifyMetrics *ClassifyMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one with the Go runtime and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		config:             *cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
	if c.config.Namespace == "" {
		c.config.Namespace = config.DefaultMetricsNamespace
	}
	if c.config.Subsystem == "" {
		c.config.Subsystem = config.DefaultMetricsSubsystem
	}

	c.exchangeMetrics = NewExchangeMetrics(&c.config, registry)
	c.classifyMetrics = NewClassifyMetrics(&c.config, registry)
	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// limit returns value, or "other" once kind has too many distinct values.
func (c *Collector) limit(kind, value string) string {
	if !c.cardinalityLimiter.Allow(kind + ":" + value) {
		return otherLabel
	}
	return value
}

// RecordExchange records a finished exchange.
func (c *Collector) RecordExchange(method, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.exchangeMetrics.RecordExchange(c.limit("method", method), outcome, duration)
}

// RecordRejection records an exchange refused by the access guard.
func (c *Collector) RecordRejection(reason string) {
	if !c.enabled() {
		return
	}
	c.exchangeMetrics.RecordRejection(reason)
}

// RecordCapture records the size of a captured response body.
func (c *Collector) RecordCapture(size int) {
	if !c.enabled() {
		return
	}
	c.exchangeMetrics.RecordCapture(size)
}

// RecordCaptureDropped records a capture discarded before dispatch.
func (c *Collector) RecordCaptureDropped(reason string) {
	if !c.enabled() {
		return
	}
	c.exchangeMetrics.RecordCaptureDropped(reason)
}

// ObserveTask records a finished classification task.
func (c *Collector) ObserveTask(outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.classifyMetrics.RecordTask(outcome, duration)
}

// ObserveRecord records a published record.
func (c *Collector) ObserveRecord(kind string) {
	if !c.enabled() {
		return
	}
	c.classifyMetrics.RecordRecord(c.limit("kind", kind))
}

// ObserveServerDetected records the detected server.
func (c *Collector) ObserveServerDetected(name string) {
	if !c.enabled() {
		return
	}
	c.classifyMetrics.SetServerDetected(name)
}

// ObserveBacklog records the number of tasks waiting for a worker.
func (c *Collector) ObserveBacklog(n int) {
	if !c.enabled() {
		return
	}
	c.classifyMetrics.SetBacklog(n)
}

// CardinalityLimiter caps the number of distinct label sets.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the
// limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

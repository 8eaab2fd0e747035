// Package telemetry groups the observability packages of the relay.
//
// # Components
//
//   - logging: slog setup, exchange ID context fields and field redaction
//   - metrics: Prometheus collectors for exchanges and classification
//   - tracing: OpenTelemetry spans for exchanges and classification tasks
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, nil)
//	slog.SetDefault(logger)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordExchange(http.MethodGet, "captured", time.Since(start))
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
//
// Every collector method is safe on a nil or disabled collector, so
// components take an optional *metrics.Collector.
package telemetry

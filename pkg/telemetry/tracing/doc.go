// Package tracing provides OpenTelemetry tracing for the relay.
//
// New installs a global tracer provider exporting spans over OTLP gRPC, so
// every package that calls otel.Tracer shares one pipeline. When tracing is
// disabled the global provider is left alone and spans are no-ops.
//
// # Spans
//
//   - proxy.exchange: one per proxied exchange, from admission to the final
//     byte relayed to the client
//   - classify.task: one per classification task, carrying a link
//     to the exchange span
//
// Incoming W3C traceparent headers are extracted so that exchange spans join
// a caller's trace. Outgoing requests are never modified, since the relay
// forwards headers unchanged apart from the sanitized hop headers.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing

// Package metrics provides Prometheus metrics for the relay.
//
// # Metrics
//
// Exchange metrics (namespace and subsystem from configuration, "relay_proxy"
// by default):
//   - exchanges_total{method,outcome}: finished exchanges by outcome
//     ("forwarded", "captured", "aborted", "upstream_error", "no_target",
//     "rejected", "method_not_allowed")
//   - exchange_duration_seconds{method}: time from admission to completion
//   - admission_rejected_total{reason}: exchanges refused by the access guard
//   - captured_bytes: size of captured response bodies
//   - capture_dropped_total{reason}: captures discarded before dispatch
//
// Classification metrics:
//   - classify_tasks_total{outcome}: tasks by outcome
//   - classify_task_duration_seconds: time spent classifying one payload
//   - classify_backlog: tasks waiting for a worker
//   - records_total{kind}: published records by kind
//   - server_detected{server}: 1 once a server has been detected
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Every recording method is safe to call on a nil *Collector or when
// metrics are disabled.
package metrics

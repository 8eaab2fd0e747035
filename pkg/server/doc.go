// Package server runs the relay's HTTP listeners.
//
// Two listeners are served: the proxy listener carrying client traffic and
// the admin listener with operational endpoints. Both are Server values that
// bind on Start and shut down gracefully when their context ends.
//
// # Admin Routes
//
//   - GET /health: liveness probe
//   - GET /ready: readiness probe running the registered checks
//   - GET /version: build information
//   - GET /status: detected server, worker backlog and record count
//   - GET <metrics path>: Prometheus metrics when metrics are enabled
//
// The admin listener should stay on a loopback address; it is not guarded.
package server

// Package health serves the admin listener's liveness and readiness probes.
//
// Liveness (GET /health) answers 200 while the process runs. Readiness
// (GET /ready) runs every registered check concurrently, each under its own
// timeout, and answers 503 when any check fails. The relay registers checks
// for the record store and the classification pool:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("records", func(ctx context.Context) error {
//	    _, err := store.Count(ctx)
//	    return err
//	})
package health

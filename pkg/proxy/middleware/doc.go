// Package middleware provides the HTTP middleware wrapped around the proxy
// handler and the admin endpoints.
//
//   - RequestIDMiddleware assigns each exchange a UUID and stores it in the
//     context for logging
//   - LoggingMiddleware logs one line per finished exchange
//   - RecoveryMiddleware turns handler panics into 500 responses
//
// None of the middleware adds headers to proxied responses. Apply them with
// Chain, outermost first:
//
//	handler = middleware.Chain(proxyHandler,
//	    middleware.RequestIDMiddleware,
//	    middleware.LoggingMiddleware(logger),
//	    middleware.RecoveryMiddleware(logger),
//	)
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

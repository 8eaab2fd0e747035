package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"logbook-hq/relay/pkg/telemetry/logging"
)

// RequestIDMiddleware generates an exchange ID for each request and stores
// it in the request context, where logging.GetExchangeID and the log
// handler find it. Client supplied ID headers are ignored and forwarded
// untouched.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithExchangeID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseWriter records the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	bytes      int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the reverse proxy uses for flushing.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs every finished exchange. Server errors log at
// error level and client errors at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			ctx := r.Context()

			logger.DebugContext(ctx, "exchange started",
				"method", r.Method,
				"host", r.Host,
				"remote_addr", r.RemoteAddr,
			)

			defer func() {
				level := slog.LevelInfo
				switch {
				case rw.statusCode >= 500:
					level = slog.LevelError
				case rw.statusCode >= 400:
					level = slog.LevelWarn
				}
				logger.Log(ctx, level, "exchange completed",
					"method", r.Method,
					"host", r.Host,
					"path", r.URL.Path,
					"status", rw.statusCode,
					"bytes", rw.bytes,
					"latency_ms", time.Since(start).Milliseconds(),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

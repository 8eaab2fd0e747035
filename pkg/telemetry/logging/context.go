package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// ExchangeIDKey is the context key for exchange IDs.
	ExchangeIDKey contextKey = "exchange_id"
)

// WithExchangeID adds an exchange ID to the context.
func WithExchangeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ExchangeIDKey, id)
}

// GetExchangeID retrieves the exchange ID from the context.
func GetExchangeID(ctx context.Context) string {
	if id, ok := ctx.Value(ExchangeIDKey).(string); ok {
		return id
	}
	return ""
}

// extractContextFields returns the log fields carried by ctx.
func extractContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr

	if id := GetExchangeID(ctx); id != "" {
		fields = append(fields, slog.String("exchange_id", id))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return fields
}

// ContextHandler adds the fields carried by a record's context to the
// record before passing it on.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if fields := extractContextFields(ctx); len(fields) > 0 {
			r = r.Clone()
			r.AddAttrs(fields...)
		}
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"logbook-hq/relay/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{name: "json", cfg: config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "text", cfg: config.LoggingConfig{Level: "debug", Format: "text"}},
		{name: "defaults", cfg: config.LoggingConfig{}},
		{name: "upper case", cfg: config.LoggingConfig{Level: "WARN", Format: "JSON"}},
		{name: "bad level", cfg: config.LoggingConfig{Level: "verbose"}, wantErr: true},
		{name: "bad format", cfg: config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing")
	}
}

func TestNew_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", RedactFields: []string{"api_token"}}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("exchange completed",
		"uri", "/kcsapi/api_port/port?api_verno=1&api_token=0123456789abcdef",
		"body", "api_token=secret&api_verno=1",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log: %v", err)
	}
	if got := entry["uri"]; got != "/kcsapi/api_port/port?api_verno=1&api_token=***" {
		t.Errorf("uri = %v", got)
	}
	if got := entry["body"]; got != "api_token=***&api_verno=1" {
		t.Errorf("body = %v", got)
	}
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = WithExchangeID(ctx, "ex-42")

	logger.With("component", "test").InfoContext(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log: %v", err)
	}
	if entry["exchange_id"] != "ex-42" {
		t.Errorf("exchange_id = %v, want ex-42", entry["exchange_id"])
	}
	if entry["trace_id"] != traceID.String() || entry["span_id"] != spanID.String() {
		t.Errorf("trace fields = %v, %v", entry["trace_id"], entry["span_id"])
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v, want test", entry["component"])
	}
}

func TestGetExchangeID(t *testing.T) {
	if got := GetExchangeID(context.Background()); got != "" {
		t.Errorf("GetExchangeID(empty) = %q", got)
	}
	if got := GetExchangeID(WithExchangeID(context.Background(), "abc")); got != "abc" {
		t.Errorf("GetExchangeID() = %q, want abc", got)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"logbook-hq/relay/pkg/telemetry/health"
)

// Status is the body of GET /status.
type Status struct {
	ServerDetected bool      `json:"server_detected"`
	ServerName     string    `json:"server_name,omitempty"`
	Workers        int       `json:"workers"`
	Backlog        int       `json:"backlog"`
	Records        int64     `json:"records"`
	RecordsBackend string    `json:"records_backend"`
	StartedAt      time.Time `json:"started_at"`
	Uptime         string    `json:"uptime"`
}

// StatusFunc reports the current status.
type StatusFunc func(ctx context.Context) Status

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// AdminOptions configures the admin handler.
type AdminOptions struct {
	Checker *health.Checker
	Build   BuildInfo
	Status  StatusFunc

	// Metrics is mounted at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string
}

// NewAdminHandler builds the admin mux.
func NewAdminHandler(opts AdminOptions) http.Handler {
	mux := http.NewServeMux()

	checker := opts.Checker
	if checker == nil {
		checker = health.New(0)
	}
	checker.Register(mux, opts.Build.Version, opts.Build.Commit, opts.Build.BuildTime)

	if opts.Metrics != nil && opts.MetricsPath != "" {
		mux.Handle(opts.MetricsPath, opts.Metrics)
	}

	if opts.Status != nil {
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(opts.Status(r.Context()))
		})
	}

	return mux
}

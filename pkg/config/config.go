package config

import "time"

// Config is the root configuration structure for relay.
// It contains all configuration sections for the proxy listener, the
// outbound leg, capture filtering, classification, record storage and
// telemetry.
type Config struct {
	// Proxy contains the inbound listener configuration including the
	// listen address, timeouts and the loopback restriction.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream contains configuration for the outbound leg: the default
	// target and the optional secondary proxy hop.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Capture contains the capture predicate rules deciding which
	// responses are buffered for classification.
	Capture CaptureConfig `yaml:"capture"`

	// Classify contains the worker pool size and decoder rules.
	Classify ClassifyConfig `yaml:"classify"`

	// Records contains configuration for the record queue backend.
	Records RecordsConfig `yaml:"records"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// the admin listener.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch enables hot reload of the capture and decoder rules when the
	// configuration file changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// ProxyConfig contains configuration for the inbound HTTP listener.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Default: "127.0.0.1:8888"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Zero means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Zero means no timeout, which lets long responses stream.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// RestrictToLoopback rejects every exchange whose remote address is not
	// a loopback address with 400 Bad Request.
	// Default: true
	RestrictToLoopback bool `yaml:"restrict_to_loopback"`
}

// UpstreamConfig contains configuration for the outbound leg.
type UpstreamConfig struct {
	// Target is the default upstream base URL used for origin-form requests.
	// Absolute-form requests (the client uses relay as its HTTP proxy) are
	// forwarded to their own host and ignore Target.
	// Example: "http://api.example"
	Target string `yaml:"target"`

	// UseProxy routes every outbound request through ProxyHost:ProxyPort.
	// Default: false
	UseProxy bool `yaml:"use_proxy"`

	// ProxyHost is the secondary hop host. Required when UseProxy is set.
	ProxyHost string `yaml:"proxy_host"`

	// ProxyPort is the secondary hop port. Required when UseProxy is set.
	ProxyPort int `yaml:"proxy_port"`

	// DialTimeout bounds establishing the outbound TCP connection.
	// Default: 30s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ResponseHeaderTimeout bounds waiting for upstream response headers.
	// Zero means no timeout.
	// Default: 0
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`

	// InsecureSkipVerify disables upstream TLS certificate verification.
	// Default: false
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// CaptureConfig contains the capture predicate rules.
type CaptureConfig struct {
	// Hosts lists upstream host names of interest. Entries may use a
	// leading "*." wildcard. Empty means any host.
	Hosts []string `yaml:"hosts"`

	// ContentTypes lists media types of interest ("type/subtype",
	// "type/*" or "*/*"). Empty means any content type.
	// Default: ["application/json", "text/plain"]
	ContentTypes []string `yaml:"content_types"`

	// LockToDetectedServer restricts capture to the detected server once
	// the first recognized record has been published.
	// Default: false
	LockToDetectedServer bool `yaml:"lock_to_detected_server"`

	// MaxBufferBytes caps the captured bytes of a single response. An
	// exchange exceeding the cap is not classified. Zero means unbounded.
	// Default: 0
	MaxBufferBytes int64 `yaml:"max_buffer_bytes"`
}

// ClassifyConfig contains configuration for the classification pool and
// the default rule-based decoder.
type ClassifyConfig struct {
	// Workers is the number of classification workers.
	// Default: runtime.NumCPU()
	Workers int `yaml:"workers"`

	// StripPrefix is removed from the start of a response body before it is
	// parsed as JSON (e.g. "svdata=").
	StripPrefix string `yaml:"strip_prefix"`

	// Rules map request paths to record kinds. A payload whose path matches
	// no rule decodes to the undefined kind.
	Rules []DecodeRule `yaml:"rules"`
}

// DecodeRule maps a request path to a record kind.
type DecodeRule struct {
	// Kind is the record kind assigned to matching payloads.
	Kind string `yaml:"kind"`

	// Path is the request path to match.
	Path string `yaml:"path"`

	// Match is "exact" or "prefix".
	// Default: "exact"
	Match string `yaml:"match"`
}

// RecordsConfig contains configuration for the record queue backend.
type RecordsConfig struct {
	// Backend selects the record queue backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Memory contains memory backend configuration.
	Memory MemoryConfig `yaml:"memory"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains pruning settings for persistent backends.
	Retention RetentionConfig `yaml:"retention"`
}

// MemoryConfig contains memory record queue configuration.
type MemoryConfig struct {
	// MaxRecords caps the records waiting in the queue; the oldest is
	// dropped when a new one arrives at the cap. Zero means unbounded.
	// Default: 10000
	MaxRecords int64 `yaml:"max_records"`
}

// SQLiteConfig contains SQLite record store configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/records.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (mattn/go-sqlite3, cgo), "sqlite" (modernc.org/sqlite)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// StoreRaw stores the zstd-compressed raw request and response bodies
	// alongside every record.
	// Default: false
	StoreRaw bool `yaml:"store_raw"`
}

// RetentionConfig contains record retention settings.
type RetentionConfig struct {
	// MaxAge deletes records older than this. Zero keeps records forever.
	// Default: 0
	MaxAge time.Duration `yaml:"max_age"`

	// MaxRecords keeps at most this many records. Zero means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard cron expression for pruning runs.
	// Default: "0 * * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Admin contains the admin listener configuration.
	Admin AdminConfig `yaml:"admin"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactFields lists query and form field names whose values are
	// masked wherever they appear in logged URIs or bodies.
	// Default: ["api_token"]
	RedactFields []string `yaml:"redact_fields"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the admin HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "relay"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "proxy"
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "relay"
	ServiceName string `yaml:"service_name"`
}

// AdminConfig contains the admin listener configuration.
type AdminConfig struct {
	// ListenAddress is the address for health, status and metrics
	// endpoints. Empty disables the admin listener.
	// Default: "127.0.0.1:8889"
	ListenAddress string `yaml:"listen_address"`
}

package config

import (
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress       = "127.0.0.1:8888"
	DefaultReadTimeout         = 30 * time.Second
	DefaultWriteTimeout        = 0
	DefaultIdleTimeout         = 120 * time.Second
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultMaxHeaderBytes      = 1048576 // 1MB
	DefaultRestrictToLoopback  = true
	DefaultUpstreamDialTimeout = 30 * time.Second

	// Capture defaults
	DefaultCaptureMaxBufferBytes = int64(0)

	// Classify defaults
	DefaultDecodeMatch = "exact"

	// Records defaults
	DefaultRecordsBackend      = "memory"
	DefaultMemoryMaxRecords    = int64(10000)
	DefaultSQLitePath          = "data/records.db"
	DefaultSQLiteDriver        = "sqlite3"
	DefaultSQLiteMaxOpenConns  = 4
	DefaultSQLiteWALMode       = true
	DefaultSQLiteBusyTimeout   = 5 * time.Second
	DefaultRetentionSchedule   = "0 * * * *"
	DefaultRetentionMaxRecords = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "relay"
	DefaultMetricsSubsystem    = "proxy"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "relay"
	DefaultAdminListenAddress  = "127.0.0.1:8889"
)

// DefaultContentTypes are the media types captured when the configuration
// does not list any.
var DefaultContentTypes = []string{"application/json", "text/plain"}

// DefaultRedactFields are the field names masked in logs when the
// configuration does not list any.
var DefaultRedactFields = []string{"api_token"}

// Default returns a configuration populated with every default value.
// LoadConfig unmarshals the YAML file on top of it, so boolean and string
// defaults survive unless the file sets them explicitly.
func Default() *Config {
	cfg := &Config{
		Proxy: ProxyConfig{
			RestrictToLoopback: DefaultRestrictToLoopback,
		},
		Records: RecordsConfig{
			SQLite: SQLiteConfig{
				WALMode: DefaultSQLiteWALMode,
			},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Admin: AdminConfig{
				ListenAddress: DefaultAdminListenAddress,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Upstream defaults
	if cfg.Upstream.DialTimeout == 0 {
		cfg.Upstream.DialTimeout = DefaultUpstreamDialTimeout
	}

	// Capture defaults
	if cfg.Capture.ContentTypes == nil {
		cfg.Capture.ContentTypes = append([]string(nil), DefaultContentTypes...)
	}

	// Classify defaults
	if cfg.Classify.Workers == 0 {
		cfg.Classify.Workers = runtime.NumCPU()
	}
	for i := range cfg.Classify.Rules {
		if cfg.Classify.Rules[i].Match == "" {
			cfg.Classify.Rules[i].Match = DefaultDecodeMatch
		}
	}

	// Records defaults
	if cfg.Records.Backend == "" {
		cfg.Records.Backend = DefaultRecordsBackend
	}
	if cfg.Records.Memory.MaxRecords == 0 {
		cfg.Records.Memory.MaxRecords = DefaultMemoryMaxRecords
	}
	if cfg.Records.SQLite.Path == "" {
		cfg.Records.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Records.SQLite.Driver == "" {
		cfg.Records.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Records.SQLite.MaxOpenConns == 0 {
		cfg.Records.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Records.SQLite.BusyTimeout == 0 {
		cfg.Records.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Records.Retention.PruneSchedule == "" {
		cfg.Records.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.RedactFields == nil {
		cfg.Telemetry.Logging.RedactFields = append([]string(nil), DefaultRedactFields...)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}

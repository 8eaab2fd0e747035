package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "RELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default(), so fields it does not mention keep
// their default values. The result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults without
// validating it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RELAY_SECTION_FIELD (e.g., RELAY_PROXY_RESTRICT_TO_LOOPBACK).
// Environment variables always take precedence over file-based configuration.
//
// If path is empty the defaults are used as the file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies environment variable overrides to the configuration.
// A malformed value is reported as an error rather than ignored, since the
// upstream proxy settings must fail fast.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			*dst = val
		}
	}
	boolean := func(name string, dst *bool) {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid boolean %q", val)})
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid duration %q", val)})
				return
			}
			*dst = d
		}
	}
	integer64 := func(name string, dst *int64) {
		if val, ok := lookup(EnvPrefix + name); ok && val != "" {
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	list := func(name string, dst *[]string) {
		if val, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(val)
		}
	}

	// Proxy overrides
	str("PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	duration("PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	duration("PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	duration("PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	duration("PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	boolean("PROXY_RESTRICT_TO_LOOPBACK", &cfg.Proxy.RestrictToLoopback)

	// Upstream overrides
	str("UPSTREAM_TARGET", &cfg.Upstream.Target)
	boolean("UPSTREAM_USE_PROXY", &cfg.Upstream.UseProxy)
	str("UPSTREAM_PROXY_HOST", &cfg.Upstream.ProxyHost)
	integer("UPSTREAM_PROXY_PORT", &cfg.Upstream.ProxyPort)
	duration("UPSTREAM_DIAL_TIMEOUT", &cfg.Upstream.DialTimeout)

	// Capture overrides
	list("CAPTURE_HOSTS", &cfg.Capture.Hosts)
	list("CAPTURE_CONTENT_TYPES", &cfg.Capture.ContentTypes)
	boolean("CAPTURE_LOCK_TO_DETECTED_SERVER", &cfg.Capture.LockToDetectedServer)

	// Classify overrides
	integer("CLASSIFY_WORKERS", &cfg.Classify.Workers)
	str("CLASSIFY_STRIP_PREFIX", &cfg.Classify.StripPrefix)

	// Records overrides
	str("RECORDS_BACKEND", &cfg.Records.Backend)
	integer64("RECORDS_MEMORY_MAX_RECORDS", &cfg.Records.Memory.MaxRecords)
	str("RECORDS_SQLITE_PATH", &cfg.Records.SQLite.Path)
	str("RECORDS_SQLITE_DRIVER", &cfg.Records.SQLite.Driver)
	duration("RECORDS_RETENTION_MAX_AGE", &cfg.Records.Retention.MaxAge)

	// Telemetry overrides
	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val, ok := lookup(EnvPrefix + "TELEMETRY_ADMIN_LISTEN_ADDRESS"); ok {
		cfg.Telemetry.Admin.ListenAddress = val
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// splitList splits a comma separated environment value, dropping empty items.
func splitList(val string) []string {
	out := []string{}
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

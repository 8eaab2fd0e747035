package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, ValidateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateCapture(&cfg.Capture)...)
	errs = append(errs, validateClassify(&cfg.Classify)...)
	errs = append(errs, validateRecords(&cfg.Records)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateProxy validates proxy configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.read_timeout", Message: "read timeout must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.write_timeout", Message: "write timeout must not be negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.idle_timeout", Message: "idle timeout must not be negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.shutdown_timeout", Message: "shutdown timeout must not be negative"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "proxy.max_header_bytes", Message: "max header bytes must be non-negative"})
	}

	return errs
}

// ValidateUpstream validates the outbound leg configuration. It is exported
// because the transport builder runs it again at construction time.
func ValidateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if cfg.Target != "" {
		u, err := url.Parse(cfg.Target)
		switch {
		case err != nil:
			errs = append(errs, FieldError{
				Field:   "upstream.target",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, FieldError{
				Field:   "upstream.target",
				Message: fmt.Sprintf("unsupported scheme %q (must be http or https)", u.Scheme),
			})
		case u.Host == "":
			errs = append(errs, FieldError{
				Field:   "upstream.target",
				Message: "target URL must include a host",
			})
		}
	}

	if cfg.UseProxy {
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			errs = append(errs, FieldError{
				Field:   "upstream.proxy_host",
				Message: "proxy host is required when use_proxy is enabled",
			})
		} else if strings.ContainsAny(cfg.ProxyHost, "/ ?#@") {
			errs = append(errs, FieldError{
				Field:   "upstream.proxy_host",
				Message: fmt.Sprintf("invalid proxy host %q", cfg.ProxyHost),
			})
		}
		if cfg.ProxyPort < 1 || cfg.ProxyPort > 65535 {
			errs = append(errs, FieldError{
				Field:   "upstream.proxy_port",
				Message: fmt.Sprintf("proxy port must be between 1 and 65535, got %d", cfg.ProxyPort),
			})
		}
	}

	if cfg.DialTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.dial_timeout", Message: "dial timeout must not be negative"})
	}
	if cfg.ResponseHeaderTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.response_header_timeout", Message: "response header timeout must not be negative"})
	}

	return errs
}

// validateCapture validates capture predicate rules.
func validateCapture(cfg *CaptureConfig) []FieldError {
	var errs []FieldError

	for i, host := range cfg.Hosts {
		if strings.TrimSpace(host) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.hosts[%d]", i),
				Message: "host must not be empty",
			})
		}
	}

	for i, ct := range cfg.ContentTypes {
		typ, sub, ok := strings.Cut(strings.TrimSpace(ct), "/")
		if !ok || typ == "" || sub == "" || (typ == "*" && sub != "*") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.content_types[%d]", i),
				Message: fmt.Sprintf("invalid media type pattern %q", ct),
			})
		}
	}

	if cfg.MaxBufferBytes < 0 {
		errs = append(errs, FieldError{Field: "capture.max_buffer_bytes", Message: "max buffer bytes must be non-negative"})
	}

	return errs
}

// validateClassify validates the worker pool and decoder rules.
func validateClassify(cfg *ClassifyConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers < 1 {
		errs = append(errs, FieldError{
			Field:   "classify.workers",
			Message: fmt.Sprintf("workers must be at least 1, got %d", cfg.Workers),
		})
	}

	for i, rule := range cfg.Rules {
		field := fmt.Sprintf("classify.rules[%d]", i)
		if rule.Kind == "" {
			errs = append(errs, FieldError{Field: field + ".kind", Message: "kind is required"})
		} else if strings.EqualFold(rule.Kind, "undefined") {
			errs = append(errs, FieldError{Field: field + ".kind", Message: "kind must not be the undefined sentinel"})
		}
		if !strings.HasPrefix(rule.Path, "/") {
			errs = append(errs, FieldError{Field: field + ".path", Message: fmt.Sprintf("path must start with '/', got %q", rule.Path)})
		}
		if rule.Match != "exact" && rule.Match != "prefix" {
			errs = append(errs, FieldError{Field: field + ".match", Message: fmt.Sprintf("match must be exact or prefix, got %q", rule.Match)})
		}
	}

	return errs
}

// validateRecords validates record queue configuration.
func validateRecords(cfg *RecordsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "records.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "records.sqlite.driver",
				Message: fmt.Sprintf("driver must be sqlite3 or sqlite, got %q", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "records.sqlite.max_open_conns", Message: "max open conns must be at least 1"})
		}
		if cfg.Retention.PruneSchedule != "" {
			if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
				errs = append(errs, FieldError{
					Field:   "records.retention.prune_schedule",
					Message: fmt.Sprintf("invalid cron expression: %v", err),
				})
			}
		}
	default:
		errs = append(errs, FieldError{
			Field:   "records.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}

	if cfg.Memory.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "records.memory.max_records", Message: "max records must not be negative"})
	}
	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "records.retention.max_age", Message: "max age must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "records.retention.max_records", Message: "max records must not be negative"})
	}

	return errs
}

// validateTelemetry validates logging, metrics, tracing and admin settings.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown log level %q", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown log format %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with '/'"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0 and 1, got %v", cfg.Tracing.SampleRatio),
		})
	}

	if cfg.Admin.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.Admin.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.admin.listen_address",
				Message: fmt.Sprintf("invalid listen address: %v", err),
			})
		}
	}

	return errs
}

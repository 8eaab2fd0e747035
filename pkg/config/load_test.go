package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
proxy:
  listen_address: "127.0.0.1:9000"
  read_timeout: "60s"
upstream:
  target: "http://api.example"
  use_proxy: true
  proxy_host: "squid.local"
  proxy_port: 3128
capture:
  hosts: ["api.example"]
  content_types: ["application/json"]
classify:
  workers: 2
  strip_prefix: "svdata="
  rules:
    - kind: port
      path: /api/port
    - kind: master
      path: /api/start
      match: prefix
telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:9000", cfg.Proxy.ListenAddress)
	}
	if cfg.Proxy.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Proxy.ReadTimeout)
	}
	if !cfg.Proxy.RestrictToLoopback {
		t.Error("expected restrict_to_loopback to keep its default of true")
	}
	if !cfg.Upstream.UseProxy || cfg.Upstream.ProxyHost != "squid.local" || cfg.Upstream.ProxyPort != 3128 {
		t.Errorf("unexpected upstream config: %+v", cfg.Upstream)
	}
	if !reflect.DeepEqual(cfg.Capture.ContentTypes, []string{"application/json"}) {
		t.Errorf("expected content types [application/json], got %v", cfg.Capture.ContentTypes)
	}
	if len(cfg.Classify.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Classify.Rules))
	}
	if cfg.Classify.Rules[0].Match != "exact" {
		t.Errorf("expected default match %q, got %q", "exact", cfg.Classify.Rules[0].Match)
	}
	if cfg.Classify.Rules[1].Match != "prefix" {
		t.Errorf("expected match %q, got %q", "prefix", cfg.Classify.Rules[1].Match)
	}
	if cfg.Telemetry.Admin.ListenAddress != DefaultAdminListenAddress {
		t.Errorf("expected admin address %q, got %q", DefaultAdminListenAddress, cfg.Telemetry.Admin.ListenAddress)
	}
}

func TestLoadConfig_ExplicitFalseOverridesDefault(t *testing.T) {
	path := writeConfig(t, `
proxy:
  restrict_to_loopback: false
telemetry:
  admin:
    listen_address: ""
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Proxy.RestrictToLoopback {
		t.Error("expected restrict_to_loopback to be false")
	}
	if cfg.Telemetry.Admin.ListenAddress != "" {
		t.Errorf("expected admin listener disabled, got %q", cfg.Telemetry.Admin.ListenAddress)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "proxy: [unterminated")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("invalid upstream proxy", func(t *testing.T) {
		path := writeConfig(t, `
upstream:
  use_proxy: true
  proxy_port: 70000
`)
		_, err := LoadConfig(path)
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(verr.Errors) != 2 {
			t.Errorf("expected 2 field errors (host and port), got %d: %v", len(verr.Errors), verr)
		}
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"RELAY_PROXY_RESTRICT_TO_LOOPBACK": "false",
		"RELAY_UPSTREAM_USE_PROXY":         "true",
		"RELAY_UPSTREAM_PROXY_HOST":        "10.0.0.1",
		"RELAY_UPSTREAM_PROXY_PORT":        "8080",
		"RELAY_CAPTURE_HOSTS":              "api.example, *.cdn.example ,",
		"RELAY_TELEMETRY_LOGGING_LEVEL":    "warn",
		"RELAY_RECORDS_MEMORY_MAX_RECORDS": "500",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	if err := applyEnvOverrides(cfg, lookup); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Proxy.RestrictToLoopback {
		t.Error("expected restrict_to_loopback override to false")
	}
	if !cfg.Upstream.UseProxy || cfg.Upstream.ProxyHost != "10.0.0.1" || cfg.Upstream.ProxyPort != 8080 {
		t.Errorf("unexpected upstream config: %+v", cfg.Upstream)
	}
	if want := []string{"api.example", "*.cdn.example"}; !reflect.DeepEqual(cfg.Capture.Hosts, want) {
		t.Errorf("capture hosts = %v, want %v", cfg.Capture.Hosts, want)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("logging level = %q, want %q", cfg.Telemetry.Logging.Level, "warn")
	}
	if cfg.Records.Memory.MaxRecords != 500 {
		t.Errorf("memory max records = %d, want 500", cfg.Records.Memory.MaxRecords)
	}
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "RELAY_UPSTREAM_PROXY_PORT" {
			return "eighty", true
		}
		return "", false
	}

	err := applyEnvOverrides(Default(), lookup)
	if err == nil {
		t.Fatal("expected error for malformed port")
	}
	var verr ValidationError
	if !errors.As(err, &verr) || verr.Errors[0].Field != "RELAY_UPSTREAM_PROXY_PORT" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("RELAY_PROXY_LISTEN_ADDRESS", "127.0.0.1:7777")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Proxy.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("listen address = %q, want %q", cfg.Proxy.ListenAddress, "127.0.0.1:7777")
	}
}

package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("expected default config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Proxy.ListenAddress = ""
	cfg.Classify.Workers = 0
	cfg.Records.Backend = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(validationErr.Errors), validationErr)
	}
	if !strings.Contains(validationErr.Error(), "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
}

func TestValidateUpstream(t *testing.T) {
	tests := []struct {
		name      string
		upstream  UpstreamConfig
		wantField string
	}{
		{name: "no target no proxy", upstream: UpstreamConfig{}},
		{name: "valid target", upstream: UpstreamConfig{Target: "https://api.example/base"}},
		{name: "ftp target", upstream: UpstreamConfig{Target: "ftp://api.example"}, wantField: "upstream.target"},
		{name: "target without host", upstream: UpstreamConfig{Target: "http://"}, wantField: "upstream.target"},
		{name: "valid proxy", upstream: UpstreamConfig{UseProxy: true, ProxyHost: "127.0.0.1", ProxyPort: 3128}},
		{name: "proxy without host", upstream: UpstreamConfig{UseProxy: true, ProxyPort: 3128}, wantField: "upstream.proxy_host"},
		{name: "proxy host with scheme", upstream: UpstreamConfig{UseProxy: true, ProxyHost: "http://x", ProxyPort: 1}, wantField: "upstream.proxy_host"},
		{name: "proxy port zero", upstream: UpstreamConfig{UseProxy: true, ProxyHost: "x"}, wantField: "upstream.proxy_port"},
		{name: "proxy unused ignores port", upstream: UpstreamConfig{ProxyPort: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateUpstream(&tt.upstream)
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) != 1 || errs[0].Field != tt.wantField {
				t.Errorf("expected one error on %s, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidate_Capture(t *testing.T) {
	tests := []struct {
		name      string
		types     []string
		wantError bool
	}{
		{name: "exact", types: []string{"application/json"}},
		{name: "subtype wildcard", types: []string{"text/*"}},
		{name: "any", types: []string{"*/*"}},
		{name: "missing slash", types: []string{"json"}, wantError: true},
		{name: "type wildcard only", types: []string{"*/json"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Capture.ContentTypes = tt.types
			err := Validate(cfg)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidate_ClassifyRules(t *testing.T) {
	cfg := Default()
	cfg.Classify.Rules = []DecodeRule{
		{Kind: "", Path: "/a", Match: "exact"},
		{Kind: "UNDEFINED", Path: "/b", Match: "exact"},
		{Kind: "port", Path: "c", Match: "exact"},
		{Kind: "port", Path: "/d", Match: "regex"},
	}

	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestValidate_Records(t *testing.T) {
	cfg := Default()
	cfg.Records.Backend = "sqlite"
	cfg.Records.SQLite.Driver = "postgres"
	cfg.Records.Retention.PruneSchedule = "every day"

	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"records.sqlite.driver", "records.retention.prune_schedule"} {
		if !fields[want] {
			t.Errorf("expected error on %s, got %v", want, verr)
		}
	}
}

func TestValidate_MemoryRecords(t *testing.T) {
	cfg := Default()
	if cfg.Records.Memory.MaxRecords != DefaultMemoryMaxRecords {
		t.Errorf("default memory max records = %d, want %d", cfg.Records.Memory.MaxRecords, DefaultMemoryMaxRecords)
	}

	cfg.Records.Memory.MaxRecords = -1
	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Errors[0].Field != "records.memory.max_records" {
		t.Errorf("unexpected error: %v", verr)
	}
}

func TestValidate_Telemetry(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Logging.Level = "verbose"
	cfg.Telemetry.Tracing.Enabled = true
	cfg.Telemetry.Tracing.SampleRatio = 2

	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 errors (level, endpoint, ratio), got %d: %v", len(verr.Errors), verr)
	}
}

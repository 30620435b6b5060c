package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"ListenAddr", cfg.ListenAddr, "127.0.0.1:17800"},
		{"MetricsAddr", cfg.MetricsAddr, "127.0.0.1:17801"},
		{"DBPath", cfg.DBPath, "runner.db"},
		{"StoreSaveTimeout", cfg.StoreSaveTimeout, 2 * time.Second},
		{"GraceWindow", cfg.GraceWindow, 2 * time.Second},
		{"SettleDelay", cfg.SettleDelay, 300 * time.Millisecond},
		{"PortFallbackWindow", cfg.PortFallbackWindow, 8 * time.Second},
		{"UptimeTickInterval", cfg.UptimeTickInterval, 5 * time.Second},
		{"OutputBufferSize", cfg.OutputBufferSize, 256},
		{"KeepalivePeriod", cfg.KeepalivePeriod, 15 * time.Second},
		{"ReconcilePeriod", cfg.ReconcilePeriod, 5 * time.Second},
		{"StorageRetries", cfg.StorageRetries, 3},
		{"StorageRetryBackoff", cfg.StorageRetryBackoff, 250 * time.Millisecond},
		{"TunnelURLTimeout", cfg.TunnelURLTimeout, 20 * time.Second},
		{"LogFormat", cfg.LogFormat, "json"},
		{"TUIEnabled", cfg.TUIEnabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestDefaultConfig_Validates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty listen addr",
			mutate:  func(c *Config) { c.ListenAddr = "" },
			wantErr: "listen",
		},
		{
			name:    "empty db path",
			mutate:  func(c *Config) { c.DBPath = "" },
			wantErr: "db",
		},
		{
			name:    "zero grace window",
			mutate:  func(c *Config) { c.GraceWindow = 0 },
			wantErr: "grace-window",
		},
		{
			name:    "zero store save timeout",
			mutate:  func(c *Config) { c.StoreSaveTimeout = 0 },
			wantErr: "store-save-timeout",
		},
		{
			name:    "negative keepalive",
			mutate:  func(c *Config) { c.KeepalivePeriod = -time.Second },
			wantErr: "keepalive",
		},
		{
			name:    "zero storage retries",
			mutate:  func(c *Config) { c.StorageRetries = 0 },
			wantErr: "storage-retries",
		},
		{
			name:    "zero output buffer",
			mutate:  func(c *Config) { c.OutputBufferSize = 0 },
			wantErr: "output-buffer",
		},
		{
			name:    "reconcile slower than keepalive",
			mutate:  func(c *Config) { c.ReconcilePeriod = 20 * time.Second },
			wantErr: "reconcile",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log-format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = ""
	cfg.DBPath = ""
	cfg.LogFormat = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"listen", "db", "log-format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestValidationError_Unwrappable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFormat = "xml"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %T, want ValidationError in chain", err)
	}
	if verr.Field != "log-format" {
		t.Errorf("Field = %q, want log-format", verr.Field)
	}
}

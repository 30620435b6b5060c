// Package config provides configuration management for sentryvibe-runner.
package config

import "time"

// Config holds all configuration options for the runner daemon.
//
// Every timing window the kernel uses is a configuration-level constant:
// nothing in the supervision or streaming paths hardcodes a timeout.
type Config struct {
	// Serving
	ListenAddr  string `json:"listen_addr"`
	MetricsAddr string `json:"metrics_addr"`

	// State
	DBPath           string        `json:"db_path"`
	ManifestPath     string        `json:"manifest_path"`
	StoreSaveTimeout time.Duration `json:"store_save_timeout"`

	// Supervision windows
	GraceWindow        time.Duration `json:"grace_window"`
	SettleDelay        time.Duration `json:"settle_delay"`
	PortFallbackWindow time.Duration `json:"port_fallback_window"`
	UptimeTickInterval time.Duration `json:"uptime_tick_interval"`
	OutputBufferSize   int           `json:"output_buffer_size"`

	// Streaming windows
	KeepalivePeriod     time.Duration `json:"keepalive_period"`
	ReconcilePeriod     time.Duration `json:"reconcile_period"`
	StorageRetries      int           `json:"storage_retries"`
	StorageRetryBackoff time.Duration `json:"storage_retry_backoff"`

	// Tunnels
	TunnelBinary     string        `json:"tunnel_binary"`
	TunnelURLTimeout time.Duration `json:"tunnel_url_timeout"`

	// Observability
	Verbose   bool   `json:"verbose"`
	LogFormat string `json:"log_format"` // json, text

	// Dashboard
	TUIEnabled bool `json:"tui"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Serving
		ListenAddr:  "127.0.0.1:17800",
		MetricsAddr: "127.0.0.1:17801",

		// State
		DBPath:           "runner.db",
		ManifestPath:     "",
		StoreSaveTimeout: 2 * time.Second,

		// Supervision
		GraceWindow:        2 * time.Second,
		SettleDelay:        300 * time.Millisecond,
		PortFallbackWindow: 8 * time.Second,
		UptimeTickInterval: 5 * time.Second,
		OutputBufferSize:   256,

		// Streaming
		KeepalivePeriod:     15 * time.Second,
		ReconcilePeriod:     5 * time.Second,
		StorageRetries:      3,
		StorageRetryBackoff: 250 * time.Millisecond,

		// Tunnels
		TunnelBinary:     "",
		TunnelURLTimeout: 20 * time.Second,

		// Observability
		Verbose:   false,
		LogFormat: "json",

		// Dashboard
		TUIEnabled: false,
	}
}

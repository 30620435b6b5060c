package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `sentryvibe-runner - process supervision and status streaming daemon

Usage:
  sentryvibe-runner [flags]

Serving:
`)
		printFlagCategory([]string{"listen", "metrics"})

		fmt.Fprintf(os.Stderr, "\nState:\n")
		printFlagCategory([]string{"db", "services", "store-save-timeout"})

		fmt.Fprintf(os.Stderr, "\nSupervision Windows:\n")
		printFlagCategory([]string{"grace-window", "settle-delay", "port-fallback-window", "uptime-tick"})

		fmt.Fprintf(os.Stderr, "\nStreaming Windows:\n")
		printFlagCategory([]string{"keepalive", "reconcile", "storage-retries", "storage-retry-backoff"})

		fmt.Fprintf(os.Stderr, "\nTunnels:\n")
		printFlagCategory([]string{"tunnel-binary", "tunnel-url-timeout"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"v", "log-format", "tui"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Supervise the background services declared in services.yaml
  sentryvibe-runner -services services.yaml

  # Custom state database and live dashboard
  sentryvibe-runner -db /var/lib/runner/state.db -tui

`)
	}

	// Serving
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Control/streaming API address")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")

	// State
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Snapshot database path")
	flag.StringVar(&cfg.ManifestPath, "services", cfg.ManifestPath, "Service manifest YAML (optional)")
	flag.DurationVar(&cfg.StoreSaveTimeout, "store-save-timeout", cfg.StoreSaveTimeout, "Per-snapshot persist deadline")

	// Supervision windows
	flag.DurationVar(&cfg.GraceWindow, "grace-window", cfg.GraceWindow, "Graceful-stop window before forceful kill")
	flag.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "Delay between stop and start inside restart")
	flag.DurationVar(&cfg.PortFallbackWindow, "port-fallback-window", cfg.PortFallbackWindow,
		"How long a starting subject may stay silent before the reserved port is accepted as bound")
	flag.DurationVar(&cfg.UptimeTickInterval, "uptime-tick", cfg.UptimeTickInterval, "Uptime recomputation interval")
	flag.IntVar(&cfg.OutputBufferSize, "output-buffer", cfg.OutputBufferSize, "Lines buffered per output stream")

	// Streaming windows
	flag.DurationVar(&cfg.KeepalivePeriod, "keepalive", cfg.KeepalivePeriod, "Stream keepalive comment period")
	flag.DurationVar(&cfg.ReconcilePeriod, "reconcile", cfg.ReconcilePeriod, "Stream reconciliation poll period")
	flag.IntVar(&cfg.StorageRetries, "storage-retries", cfg.StorageRetries, "Transient storage fault retry attempts")
	flag.DurationVar(&cfg.StorageRetryBackoff, "storage-retry-backoff", cfg.StorageRetryBackoff, "Linear backoff step between storage retries")

	// Tunnels
	flag.StringVar(&cfg.TunnelBinary, "tunnel-binary", cfg.TunnelBinary, "Tunnel provider binary (empty disables tunnels)")
	flag.DurationVar(&cfg.TunnelURLTimeout, "tunnel-url-timeout", cfg.TunnelURLTimeout, "How long to wait for the provider's public URL")

	// Observability
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	flag.Parse()

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s\n    \t%s", f.Name, f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}

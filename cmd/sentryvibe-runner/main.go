// Package main provides the sentryvibe-runner daemon entry point.
//
// sentryvibe-runner supervises development server processes, arbitrates
// their port claims, persists their status snapshots, and streams status
// changes to clients over SSE.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codyde/sentryvibe-runner/internal/config"
	"github.com/codyde/sentryvibe-runner/internal/hub"
	"github.com/codyde/sentryvibe-runner/internal/logging"
	"github.com/codyde/sentryvibe-runner/internal/manifest"
	"github.com/codyde/sentryvibe-runner/internal/metrics"
	"github.com/codyde/sentryvibe-runner/internal/ports"
	"github.com/codyde/sentryvibe-runner/internal/store"
	"github.com/codyde/sentryvibe-runner/internal/stream"
	"github.com/codyde/sentryvibe-runner/internal/supervisor"
	"github.com/codyde/sentryvibe-runner/internal/tui"
	"github.com/codyde/sentryvibe-runner/internal/tunnel"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/sentryvibe-runner
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("sentryvibe-runner %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When the TUI is enabled, suppress logs to avoid interfering with
	// its rendering.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"version", version,
		"listen", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
		"db", cfg.DBPath,
		"manifest", cfg.ManifestPath,
	)

	// Persisted snapshot store. The single source of truth for status.
	snapStore, err := store.OpenSQLite(store.SQLiteConfig{
		Path:   cfg.DBPath,
		Logger: logger,
	})
	if err != nil {
		logger.Error("store_open_failed", "error", err)
		return 1
	}
	defer snapStore.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	allocator := ports.NewAllocator()
	statusHub := hub.New()

	var tunnels tunnel.Provider
	if cfg.TunnelBinary != "" {
		tunnels = tunnel.NewExecProvider(tunnel.ExecConfig{
			BinaryPath: cfg.TunnelBinary,
			URLTimeout: cfg.TunnelURLTimeout,
			Logger:     logger,
		})
	}

	sup := supervisor.New(supervisor.Config{
		GraceWindow:        cfg.GraceWindow,
		SettleDelay:        cfg.SettleDelay,
		PortFallbackWindow: cfg.PortFallbackWindow,
		UptimeTickInterval: cfg.UptimeTickInterval,
		OutputBufferSize:   cfg.OutputBufferSize,
		StoreSaveTimeout:   cfg.StoreSaveTimeout,
		Logger:             logger,
		Ports:              allocator,
		Hub:                statusHub,
		Store:              snapStore,
		Tunnels:            tunnels,
		Metrics:            collector,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.ManifestPath != "" {
		if err := loadServices(ctx, cfg.ManifestPath, sup, logger); err != nil {
			logger.Error("manifest_load_failed", "error", err)
			return 1
		}
	}

	streamSrv := stream.NewServer(stream.Config{
		KeepalivePeriod: cfg.KeepalivePeriod,
		ReconcilePeriod: cfg.ReconcilePeriod,
		Retry: store.RetryPolicy{
			Attempts: cfg.StorageRetries,
			Backoff:  cfg.StorageRetryBackoff,
		},
	}, sup, logger, collector)

	httpSrv := stream.NewHTTPServer(cfg.ListenAddr, streamSrv.Handler())
	go func() {
		logger.Info("api_listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			cancel()
		}
	}()

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, registry, logger)
	metricsSrv.Start()

	// Uptime ticker.
	go sup.Run(ctx)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	exitCode := waitForShutdown(ctx, cancel, cfg, sup, collector, logger)

	// Graceful teardown: stop subjects first so their final snapshots
	// land in the store before it closes.
	sup.StopAll(syscall.SIGTERM)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics_shutdown_error", "error", err)
	}

	logger.Info("stopped")
	return exitCode
}

// loadServices registers the manifest's services and starts the
// autostart ones.
func loadServices(ctx context.Context, path string, sup *supervisor.Supervisor, logger *slog.Logger) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	for _, svc := range m.Services {
		if err := sup.Register(svc.Descriptor()); err != nil {
			return fmt.Errorf("registering %q: %w", svc.ID, err)
		}
		logger.Info("service_registered", "id", svc.ID, "autostart", svc.ShouldAutostart())
	}

	// Start after all registrations so a bad manifest entry fails the
	// whole boot before any process spawns.
	for _, svc := range m.Services {
		if !svc.ShouldAutostart() {
			continue
		}
		if err := sup.Start(ctx, svc.ID); err != nil {
			logger.Error("autostart_failed", "id", svc.ID, "error", err)
		}
	}
	return nil
}

// waitForShutdown blocks until a termination signal, context
// cancellation, or TUI exit. Returns the process exit code.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, sup *supervisor.Supervisor, collector *metrics.Collector, logger *slog.Logger) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if cfg.TUIEnabled {
		model := tui.New(tui.Config{
			ListenAddr:  cfg.ListenAddr,
			MetricsAddr: cfg.MetricsAddr,
			Subjects:    sup,
			Latency:     collector,
		})
		program := tea.NewProgram(model, tea.WithAltScreen())

		go func() {
			select {
			case sig := <-sigCh:
				logger.Info("signal_received", "signal", sig.String())
				tui.SendQuit(program)
			case <-ctx.Done():
				tui.SendQuit(program)
			}
		}()

		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			cancel()
			return 1
		}
		cancel()
		return 0
	}

	select {
	case sig := <-sigCh:
		logger.Info("signal_received", "signal", sig.String())
		cancel()
		return 0
	case <-ctx.Done():
		return 1
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       sentryvibe-runner                           ║")
	fmt.Println("║      Process Supervision, Port Arbitration, Status Streaming      ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  API:         http://%s/api/projects\n", cfg.ListenAddr)
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Printf("  Snapshots:   %s\n", cfg.DBPath)
	if cfg.ManifestPath != "" {
		fmt.Printf("  Services:    %s\n", cfg.ManifestPath)
	}
	if cfg.TunnelBinary != "" {
		fmt.Printf("  Tunnels:     %s\n", cfg.TunnelBinary)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

package config

import (
	"errors"
	"fmt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.ListenAddr == "" {
		errs = append(errs, ValidationError{Field: "listen", Message: "address is required"})
	}
	if cfg.MetricsAddr == "" {
		errs = append(errs, ValidationError{Field: "metrics", Message: "address is required"})
	}
	if cfg.DBPath == "" {
		errs = append(errs, ValidationError{Field: "db", Message: "snapshot database path is required"})
	}

	for _, d := range []struct {
		field string
		value int64
	}{
		{"grace-window", int64(cfg.GraceWindow)},
		{"settle-delay", int64(cfg.SettleDelay)},
		{"port-fallback-window", int64(cfg.PortFallbackWindow)},
		{"uptime-tick", int64(cfg.UptimeTickInterval)},
		{"store-save-timeout", int64(cfg.StoreSaveTimeout)},
		{"keepalive", int64(cfg.KeepalivePeriod)},
		{"reconcile", int64(cfg.ReconcilePeriod)},
		{"storage-retry-backoff", int64(cfg.StorageRetryBackoff)},
	} {
		if d.value <= 0 {
			errs = append(errs, ValidationError{Field: d.field, Message: "must be positive"})
		}
	}

	if cfg.StorageRetries < 1 {
		errs = append(errs, ValidationError{Field: "storage-retries", Message: "must be at least 1"})
	}
	if cfg.OutputBufferSize < 1 {
		errs = append(errs, ValidationError{Field: "output-buffer", Message: "must be at least 1"})
	}

	// The reconcile poll bounds staleness; polling slower than keepalive
	// defeats its purpose as the push path's safety net.
	if cfg.ReconcilePeriod > cfg.KeepalivePeriod {
		errs = append(errs, ValidationError{
			Field:   "reconcile",
			Message: "must not exceed the keepalive period",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log-format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	return errors.Join(errs...)
}

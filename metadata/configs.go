package metadata

import (
	"context"
	"time"
)

// Config holds the settings of a Manager.
type Config struct {
	// PushTimeout bounds every Updater call made by ProcessPendingUpdates.
	// The caller's context deadline still applies when it is earlier.
	// Zero means DefaultPushTimeout; a negative value disables the bound.
	PushTimeout time.Duration `mapstructure:"push_timeout"`

	// ReconcileInterval is how often callers that reconcile on a timer should call
	// ProcessPendingUpdates. The Manager never schedules reconciliation itself.
	// Default: 1s
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`

	// FlushOnStop makes the fx lifecycle run a final reconciliation on shutdown
	// when an Updater is available in the container.
	FlushOnStop bool `mapstructure:"flush_on_stop"`
}

// Default values for configuration
const (
	DefaultPushTimeout       = 30 * time.Second
	DefaultReconcileInterval = 1 * time.Second
)

// Logger is an interface that matches the logger.Logger interface.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

func (c Config) withDefaults() Config {
	if c.PushTimeout == 0 {
		c.PushTimeout = DefaultPushTimeout
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = DefaultReconcileInterval
	}
	return c
}

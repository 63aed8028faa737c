package updaters

import (
	"context"
	"time"
)

// RetryPolicy configures WithRetry.
//
// The first push is always attempted immediately. Up to MaxRetries further attempts
// follow, with a delay starting at Initial and multiplied by Multiplier after each
// attempt, capped at Max.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one. Zero disables retrying.
	MaxRetries int `mapstructure:"max_retries"`

	// Initial is the delay before the first retry. Zero retries immediately.
	Initial time.Duration `mapstructure:"initial"`

	// Max caps the delay. Zero means no cap.
	Max time.Duration `mapstructure:"max"`

	// Multiplier grows the delay between attempts. Values <= 0 mean DefaultMultiplier.
	Multiplier float64 `mapstructure:"multiplier"`
}

// Default values for RetryPolicy
const (
	DefaultMaxRetries = 3
	DefaultInitial    = 200 * time.Millisecond
	DefaultMax        = 5 * time.Second
	DefaultMultiplier = 2.0
)

// DefaultRetryPolicy returns the policy used by the portmeta command when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Initial:    DefaultInitial,
		Max:        DefaultMax,
		Multiplier: DefaultMultiplier,
	}
}

// normalize clamps negative values to zero and fills in the multiplier.
func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Initial < 0 {
		p.Initial = 0
	}
	if p.Max < 0 {
		p.Max = 0
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

// nextDelay grows current by mult, capped at max when max > 0.
func nextDelay(current time.Duration, mult float64, max time.Duration) time.Duration {
	if current <= 0 {
		return 0
	}
	next := time.Duration(float64(current) * mult)
	if max > 0 && next > max {
		return max
	}
	return next
}

// Logger is an interface that matches the logger.Logger interface.
type Logger interface {
	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

package registry

import (
	"context"
	"time"
)

// Config holds configuration for the metadata authority client.
type Config struct {
	// URL is the authority endpoint (e.g., "http://localhost:8085")
	URL string `mapstructure:"url"`

	// Username for basic auth (optional)
	Username string `mapstructure:"username"`

	// Password for basic auth (optional)
	Password string `mapstructure:"password" json:"-"` //nolint:gosec

	// TokenSecret signs a short-lived HS256 bearer token for every request when set.
	// It takes precedence over basic auth.
	TokenSecret string `mapstructure:"token_secret" json:"-"` //nolint:gosec

	// TokenTTL is the lifetime of signed tokens. Default: 1m
	TokenTTL time.Duration `mapstructure:"token_ttl"`

	// Subject identifies this client in signed tokens. Default: "portmeta"
	Subject string `mapstructure:"subject"`

	// Timeout for HTTP requests. Default: 10s
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthorityConfig holds configuration for the authority server.
type AuthorityConfig struct {
	// Address the server listens on. Default: ":8085"
	Address string `mapstructure:"address"`

	// TokenSecret enables bearer token verification when set.
	TokenSecret string `mapstructure:"token_secret" json:"-"` //nolint:gosec

	// ReadTimeout bounds reading a request. Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Default values for configuration
const (
	DefaultTimeout          = 10 * time.Second
	DefaultTokenTTL         = time.Minute
	DefaultSubject          = "portmeta"
	DefaultAuthorityAddress = ":8085"
	DefaultReadTimeout      = 10 * time.Second
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

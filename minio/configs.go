package minio

import (
	"context"
	"time"
)

const (
	// DefaultPrefix is the key prefix under which type documents are stored
	DefaultPrefix = "portmeta/types/"

	// DefaultTimeout bounds a single object request
	DefaultTimeout = 30 * time.Second

	// connectionHealthCheckInterval defines how often the client checks connection health.
	connectionHealthCheckInterval = 10 * time.Second

	// documentContentType is the MIME type of stored type documents.
	documentContentType = "application/json"
)

// Config defines the configuration for the metadata archive.
type Config struct {
	// Connection contains basic connection parameters for the MinIO server
	Connection ConnectionConfig `mapstructure:"connection"`

	// Bucket holds the type documents
	Bucket string `mapstructure:"bucket"`

	// Prefix is prepended to every object key. Default: DefaultPrefix
	Prefix string `mapstructure:"prefix"`

	// CreateBucket creates Bucket on startup when it does not exist
	CreateBucket bool `mapstructure:"create_bucket"`

	// Timeout bounds each object request. Default: DefaultTimeout
	Timeout time.Duration `mapstructure:"timeout"`
}

// ConnectionConfig contains MinIO server connection details.
type ConnectionConfig struct {
	// Endpoint is the MinIO server address (e.g., "minio.example.com:9000")
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID is the MinIO access key (similar to a username)
	AccessKeyID string `mapstructure:"access_key_id"`

	// SecretAccessKey is the MinIO secret key (similar to a password)
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// UseSSL determines whether to use HTTPS (true) or HTTP (false)
	UseSSL bool `mapstructure:"use_ssl"`

	// Region specifies the S3 region (e.g., "us-east-1")
	Region string `mapstructure:"region"`
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

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

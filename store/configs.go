package store

import (
	"context"
	"time"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config represents the configuration of the metadata store.
type Config struct {
	// Driver selects the database: "postgres" (default) or "mysql" (MySQL and MariaDB)
	Driver string `mapstructure:"driver"`

	// Connection contains the essential parameters needed to establish a database connection
	Connection Connection `mapstructure:"connection"`

	// ConnectionDetails contains configuration for the connection pool behavior
	ConnectionDetails ConnectionDetails `mapstructure:"connection_details"`

	// AutoMigrate creates or updates the metadata tables on start
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// HealthCheckInterval is how often the connection is checked and re-established
	// when broken. Default: 10s
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// Connection holds the basic parameters required to connect to the database.
type Connection struct {
	// Host specifies the database server hostname or IP address
	Host string `mapstructure:"host"`

	// Port specifies the TCP port on which the database server is listening
	Port string `mapstructure:"port"`

	// User specifies the database username for authentication
	User string `mapstructure:"user"`

	// Password specifies the database user password for authentication
	Password string `mapstructure:"password" json:"-"` //nolint:gosec

	// DbName specifies the name of the database to connect to
	DbName string `mapstructure:"db_name"`

	// SSLMode specifies the SSL mode for postgres (e.g., "disable", "require", "verify-full")
	SSLMode string `mapstructure:"ssl_mode"`

	// TLS specifies the TLS configuration name for mysql
	// Common values: "true", "false", "skip-verify", "preferred"
	TLS string `mapstructure:"tls"`
}

// ConnectionDetails holds configuration settings for the database connection pool.
type ConnectionDetails struct {
	// MaxOpenConns controls the maximum number of open connections to the database.
	// If set to 0, the package default is used.
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// MaxIdleConns controls the maximum number of connections in the idle connection pool.
	// If set to 0, the package default is used.
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	// If set to 0, the package default is used.
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Default values for configuration
const (
	DefaultMaxOpenConns        = 10
	DefaultMaxIdleConns        = 5
	DefaultConnMaxLifetime     = time.Minute
	DefaultHealthCheckInterval = 10 * time.Second
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

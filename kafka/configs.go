package kafka

import (
	"context"
	"time"
)

// Config defines the configuration of the metadata event stream.
// The same Config serves the Publisher and the Follower; fields that only apply
// to one side are marked.
type Config struct {
	// Brokers is a list of Kafka broker addresses
	Brokers []string `mapstructure:"brokers"`

	// Topic carries one event per published type update
	// Default: "portmeta.metadata"
	Topic string `mapstructure:"topic"`

	// GroupID is the consumer group of the Follower.
	// Every node should use its own group so that each one sees every event.
	GroupID string `mapstructure:"group_id"`

	// Origin identifies this node in published events. The Follower skips events
	// carrying its own origin.
	Origin string `mapstructure:"origin"`

	// MinBytes is the minimum number of bytes to fetch in a single request (Follower)
	// Default: 1 byte
	MinBytes int `mapstructure:"min_bytes"`

	// MaxBytes is the maximum number of bytes to fetch in a single request (Follower)
	// Default: 10MB
	MaxBytes int `mapstructure:"max_bytes"`

	// MaxWait is the maximum amount of time to wait for MinBytes to become available (Follower)
	// Default: 10s
	MaxWait time.Duration `mapstructure:"max_wait"`

	// StartOffset determines where to start consuming from when there's no committed offset
	// Options: FirstOffset (-2), LastOffset (-1)
	// Default: FirstOffset, so a fresh node replays the whole history
	StartOffset int64 `mapstructure:"start_offset"`

	// RequiredAcks determines how many replica acknowledgments to wait for (Publisher)
	// Options:
	//   RequireNone (0): Don't wait for acknowledgment
	//   RequireOne (1): Wait for leader only
	//   RequireAll (-1): Wait for all in-sync replicas
	// Default: RequireAll (-1)
	RequiredAcks int `mapstructure:"required_acks"`

	// WriteTimeout is the timeout for write operations (Publisher)
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// BatchSize is the maximum number of events written in one request (Publisher)
	// Default: 100
	BatchSize int `mapstructure:"batch_size"`

	// BatchTimeout is the maximum time to wait before sending a partial batch (Publisher)
	// Default: 10ms
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`

	// Encoding is the event payload format written by the Publisher: "json" or "avro".
	// The Follower decodes either, based on the content-type header.
	// Default: "json"
	Encoding string `mapstructure:"encoding"`

	// CompressionCodec specifies the compression algorithm to use
	// Options: "" (no compression), gzip, snappy, lz4, zstd
	CompressionCodec string `mapstructure:"compression_codec"`

	// MaxAttempts is the maximum number of attempts to deliver a batch (Publisher)
	// Default: 3
	MaxAttempts int `mapstructure:"max_attempts"`

	// AllowAutoTopicCreation lets the Publisher create the topic on first write
	AllowAutoTopicCreation bool `mapstructure:"allow_auto_topic_creation"`

	// TLS contains TLS/SSL configuration
	TLS TLSConfig `mapstructure:"tls"`

	// SASL contains SASL authentication configuration
	SASL SASLConfig `mapstructure:"sasl"`
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

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	// Enabled determines whether to use TLS/SSL for the connection
	Enabled bool `mapstructure:"enabled"`

	// CACertPath is the file path to the CA certificate for verifying the broker
	CACertPath string `mapstructure:"ca_cert_path"`

	// ClientCertPath is the file path to the client certificate
	ClientCertPath string `mapstructure:"client_cert_path"`

	// ClientKeyPath is the file path to the client certificate's private key
	ClientKeyPath string `mapstructure:"client_key_path"`

	// InsecureSkipVerify controls whether to skip verification of the server's certificate
	// WARNING: Setting this to true is insecure and should only be used in testing
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// SASLConfig contains SASL authentication configuration parameters.
type SASLConfig struct {
	// Enabled determines whether to use SASL authentication
	Enabled bool `mapstructure:"enabled"`

	// Mechanism specifies the SASL mechanism to use
	// Options: "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	Mechanism string `mapstructure:"mechanism"`

	// Username is the SASL username
	Username string `mapstructure:"username"`

	// Password is the SASL password
	Password string `mapstructure:"password" json:"-"` //nolint:gosec
}

// Default values for configuration
const (
	DefaultTopic        = "portmeta.metadata"
	DefaultMinBytes     = 1
	DefaultMaxBytes     = 10e6 // 10MB
	DefaultMaxWait      = 10 * time.Second
	DefaultStartOffset  = FirstOffset
	DefaultRequiredAcks = RequireAll
	DefaultBatchSize    = 100
	DefaultBatchTimeout = 10 * time.Millisecond
	DefaultMaxAttempts  = 3
	DefaultWriteTimeout = 10 * time.Second
	DefaultEncoding     = EncodingJSON

	// Event payload formats
	EncodingJSON = "json"
	EncodingAvro = "avro"

	// Producer acknowledgment modes
	RequireNone = 0  // Fire-and-forget (no acknowledgment)
	RequireOne  = 1  // Wait for leader only
	RequireAll  = -1 // Wait for all in-sync replicas (most durable)

	// Consumer offset modes
	FirstOffset = -2 // Start from the beginning
	LastOffset  = -1 // Start from the end
)

func (cfg Config) withDefaults() Config {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = DefaultStartOffset
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = DefaultRequiredAcks
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Encoding == "" {
		cfg.Encoding = DefaultEncoding
	}
	return cfg
}

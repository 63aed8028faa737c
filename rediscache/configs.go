package rediscache

import (
	"context"
	"time"
)

const (
	// DefaultAddr is the Redis server address used when none is configured
	DefaultAddr = "localhost:6379"

	// DefaultPrefix is prepended to every key
	DefaultPrefix = "portmeta:"

	// DefaultChannel receives a notification for every type that gains fields
	DefaultChannel = "portmeta:updates"

	// DefaultMaxTxRetries bounds optimistic transaction retries per type
	DefaultMaxTxRetries = 5

	// DefaultScanCount is the COUNT hint used while scanning type keys
	DefaultScanCount = 100
)

// Config holds the Redis connection and key layout.
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string `mapstructure:"addr"`

	// Username is the ACL user name (optional)
	Username string `mapstructure:"username"`

	// Password is the Redis password (optional)
	Password string `mapstructure:"password"`

	// DB is the Redis database number
	DB int `mapstructure:"db"`

	// Prefix is prepended to every key. Default: DefaultPrefix
	Prefix string `mapstructure:"prefix"`

	// Channel is the pub/sub channel for update notifications. Default: DefaultChannel
	Channel string `mapstructure:"channel"`

	// Origin identifies this node in notifications. Follow skips its own notifications.
	Origin string `mapstructure:"origin"`

	// MaxTxRetries bounds WATCH retries when another writer touches the same type
	MaxTxRetries int `mapstructure:"max_tx_retries"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.MaxTxRetries <= 0 {
		c.MaxTxRetries = DefaultMaxTxRetries
	}
	return c
}

// Logger is an interface that matches the logger.Logger interface.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

package logger

import (
	"context"
)

// Logger provides a high-level interface for structured logging.
//
// This interface is implemented by the concrete *LoggerClient type.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, err error, fields ...map[string]interface{})

	// Info logs an informational message.
	Info(msg string, err error, fields ...map[string]interface{})

	// Warn logs a warning message.
	Warn(msg string, err error, fields ...map[string]interface{})

	// Error logs an error message.
	Error(msg string, err error, fields ...map[string]interface{})

	// The context-aware variants include trace/span ids when tracing is enabled.

	// DebugWithContext logs a debug-level message with trace context.
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Package logger wraps Uber's zap with the small structured-logging API used across
// portmeta: a message, an optional error and optional field maps.
//
// The *WithContext methods add trace_id and span_id when Config.EnableTracing is set and
// the context carries a recording OpenTelemetry span, so log lines of a reconciliation can
// be matched with its trace.
//
// Every package that logs declares its own narrow Logger interface with the
// InfoWithContext, WarnWithContext and ErrorWithContext methods; *LoggerClient satisfies
// all of them.
package logger

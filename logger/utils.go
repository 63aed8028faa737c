package logger

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// extractTracingFields returns trace_id and span_id for the recording span in ctx,
// or nil when tracing is disabled or there is no valid span.
func (l *LoggerClient) extractTracingFields(ctx context.Context) []zap.Field {
	if !l.tracingEnabled || ctx == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	spanContext := span.SpanContext()
	if !spanContext.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", spanContext.TraceID().String()),
		zap.String("span_id", spanContext.SpanID().String()),
	}
}

// convertToZapFields converts the error and field maps into zap fields.
// Keys are emitted in sorted order; a key repeated in a later map overrides the earlier one.
func (l *LoggerClient) convertToZapFields(err error, fields ...map[string]interface{}) []zap.Field {
	var zapFields []zap.Field
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}

	merged := make(map[string]interface{})
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			merged[key] = value
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		zapFields = append(zapFields, zap.Any(key, merged[key]))
	}
	return zapFields
}

func (l *LoggerClient) log(ctx context.Context, level zapcore.Level, msg string, err error, fields ...map[string]interface{}) {
	ce := l.Zap.Check(level, msg)
	if ce == nil {
		return
	}
	zapFields := l.convertToZapFields(err, fields...)
	zapFields = append(zapFields, l.extractTracingFields(ctx)...)
	ce.Write(zapFields...)
}

// Debug logs a debug-level message, along with an optional error and structured fields.
func (l *LoggerClient) Debug(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zapcore.DebugLevel, msg, err, fields...)
}

// Info logs an informational message, along with an optional error and structured fields.
//
// Example:
//
//	log.Info("Published metadata version", nil, map[string]interface{}{
//	    "version": 12,
//	    "fields":  3,
//	})
func (l *LoggerClient) Info(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zapcore.InfoLevel, msg, err, fields...)
}

// Warn logs a warning message, along with an optional error and structured fields.
func (l *LoggerClient) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zapcore.WarnLevel, msg, err, fields...)
}

// Error logs an error message, along with the error and structured fields.
//
// Example:
//
//	if err := mgr.ProcessPendingUpdates(ctx, updater); err != nil {
//	    log.Error("Metadata reconciliation failed", err, map[string]interface{}{
//	        "version": mgr.GetVersion(),
//	    })
//	}
func (l *LoggerClient) Error(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zapcore.ErrorLevel, msg, err, fields...)
}

// DebugWithContext logs a debug-level message with trace context.
func (l *LoggerClient) DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zapcore.DebugLevel, msg, err, fields...)
}

// InfoWithContext logs an informational message with trace context.
func (l *LoggerClient) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zapcore.InfoLevel, msg, err, fields...)
}

// WarnWithContext logs a warning message with trace context.
func (l *LoggerClient) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zapcore.WarnLevel, msg, err, fields...)
}

// ErrorWithContext logs an error message with trace context.
func (l *LoggerClient) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zapcore.ErrorLevel, msg, err, fields...)
}

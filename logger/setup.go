package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerClient is a wrapper around Uber's Zap logger.
//
// LoggerClient implements the Logger interface, and therefore also the narrower
// Logger interfaces declared by the metadata, registry, kafka, store and rediscache packages.
type LoggerClient struct {
	// Zap is the underlying zap.Logger instance.
	Zap *zap.Logger

	// tracingEnabled makes the *WithContext methods add trace and span ids
	tracingEnabled bool
}

// NewLoggerClient builds a LoggerClient from cfg.
//
// Entries are structured with ISO8601 timestamps, capital level names, the caller and
// the pid and service name as initial fields. JSON is the default encoding.
//
// Example:
//
//	log, err := logger.NewLoggerClient(logger.Config{
//	    Level:       logger.Info,
//	    ServiceName: "portmeta",
//	})
//	if err != nil {
//	    return err
//	}
//	log.Info("metadata manager started", nil)
func NewLoggerClient(cfg Config) (*LoggerClient, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := cfg.Encoding
	switch encoding {
	case "":
		encoding = EncodingJSON
	case EncodingJSON, EncodingConsole:
	default:
		return nil, fmt.Errorf("unsupported log encoding %q", cfg.Encoding)
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": cfg.ServiceName,
		},
	}

	callerSkip := cfg.CallerSkip
	if callerSkip <= 0 {
		callerSkip = 1
	}

	z, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return NewFromZap(z, cfg.EnableTracing), nil
}

// NewFromZap wraps an existing zap logger, for example one created by zaptest.
func NewFromZap(z *zap.Logger, tracingEnabled bool) *LoggerClient {
	if z == nil {
		z = zap.NewNop()
	}
	return &LoggerClient{Zap: z, tracingEnabled: tracingEnabled}
}

// Named returns a child logger whose entries carry a "component" field.
func (l *LoggerClient) Named(component string) *LoggerClient {
	return &LoggerClient{
		Zap:            l.Zap.With(zap.String("component", component)),
		tracingEnabled: l.tracingEnabled,
	}
}

// ParseLevel maps a configured level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning, "warn":
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

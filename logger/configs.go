package logger

// Log level constants accepted by Config.Level.
const (
	// Debug outputs every message.
	Debug = "debug"

	// Info outputs info, warning and error messages.
	Info = "info"

	// Warning outputs warning and error messages.
	Warning = "warning"

	// Error outputs error messages only.
	Error = "error"
)

// Encodings accepted by Config.Encoding.
const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Config defines the configuration of the logger.
type Config struct {
	// Level is the minimum level that will be written: "debug", "info", "warning" or "error".
	// Unknown values fall back to "info".
	Level string `mapstructure:"level"`

	// Encoding selects the line format, "json" (default) or "console".
	// The console encoding is meant for running portmeta by hand.
	Encoding string `mapstructure:"encoding"`

	// EnableTracing adds trace_id and span_id to entries logged with a context that
	// carries a recording span.
	EnableTracing bool `mapstructure:"enable_tracing"`

	// ServiceName populates the "service" field of every entry.
	ServiceName string `mapstructure:"service_name"`

	// CallerSkip is the number of stack frames skipped when reporting the caller.
	// 1 (default) reports the code calling LoggerClient; raise it for every wrapper layer.
	CallerSkip int `mapstructure:"caller_skip"`

	// OutputPaths are zap sink URLs or file paths. Default: stderr
	OutputPaths []string `mapstructure:"output_paths"`
}

package tracer

// Config defines the configuration for the OpenTelemetry tracer.
type Config struct {
	// ServiceName identifies the service on every span. Required for useful traces.
	ServiceName string `mapstructure:"service_name"`

	// AppEnv is the deployment environment ("development", "staging", "production").
	// It is set as the deployment.environment and environment resource attributes.
	AppEnv string `mapstructure:"app_env"`

	// EnableExport turns on the OTLP HTTP exporter. When false spans are still created
	// and propagated but never leave the process.
	EnableExport bool `mapstructure:"enable_export"`

	// Endpoint is the collector host:port for the OTLP HTTP exporter.
	// Empty means the exporter default, which honours OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string `mapstructure:"endpoint"`

	// Insecure disables TLS towards Endpoint.
	Insecure bool `mapstructure:"insecure"`

	// SampleRatio is the fraction of root spans sampled, in (0, 1].
	// Zero means always sample.
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

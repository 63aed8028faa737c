package metrics

const (
	DefaultSystemMetricsAddress      = ":9090"
	DefaultApplicationMetricsAddress = ":9091"
	DefaultNamespace                 = "portmeta"
)

// Config holds the metrics endpoint settings.
type Config struct {
	// SystemMetricsAddress is where Go runtime, process and build info metrics are served.
	// nil means DefaultSystemMetricsAddress; a pointer to "" disables the endpoint.
	SystemMetricsAddress *string `mapstructure:"system_address"`

	// ApplicationMetricsAddress is where the operation and manager metrics are served.
	// nil means DefaultApplicationMetricsAddress; a pointer to "" disables the endpoint,
	// in which case metrics are still collected in ApplicationRegistry.
	ApplicationMetricsAddress *string `mapstructure:"application_address"`

	// ServiceName is attached to every metric as the "service" label.
	ServiceName string `mapstructure:"service_name"`

	// Namespace prefixes the application metric names. Default: "portmeta"
	Namespace string `mapstructure:"namespace"`
}

// Ptr returns a pointer to s, for the address fields of Config.
func Ptr(s string) *string {
	return &s
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds two Prometheus registries and their HTTP servers:
// system metrics (Go runtime, process, build info) on SystemServer and the
// portmeta operation metrics on ApplicationServer.
type Metrics struct {
	// SystemServer serves SystemRegistry on /metrics, nil when disabled.
	SystemServer *http.Server

	// ApplicationServer serves ApplicationRegistry on /metrics, nil when disabled.
	ApplicationServer *http.Server

	// SystemRegistry holds the Go runtime, process and build info collectors.
	SystemRegistry *prometheus.Registry

	// ApplicationRegistry holds the operation and manager metrics.
	ApplicationRegistry *prometheus.Registry

	namespace string

	// registerer wraps ApplicationRegistry with the service label
	registerer prometheus.Registerer
}

// NewMetrics creates the registries and servers described by cfg. Servers are not
// started; RegisterMetricsLifecycle does that.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "portmeta"})
//	obs, err := metrics.NewOperationObserver(m.Registerer(), m.Namespace())
func NewMetrics(cfg Config) *Metrics {
	m := &Metrics{namespace: cfg.Namespace}
	if m.namespace == "" {
		m.namespace = DefaultNamespace
	}
	labels := prometheus.Labels{"service": cfg.ServiceName}

	systemAddr := DefaultSystemMetricsAddress
	if cfg.SystemMetricsAddress != nil {
		systemAddr = *cfg.SystemMetricsAddress
	}
	if systemAddr != "" {
		m.SystemRegistry = prometheus.NewRegistry()
		prometheus.WrapRegistererWith(labels, m.SystemRegistry).MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
		m.SystemServer = newServer(systemAddr, m.SystemRegistry)
	}

	// The application registry always exists so observers can be wired even when the
	// endpoint is disabled.
	m.ApplicationRegistry = prometheus.NewRegistry()
	m.registerer = prometheus.WrapRegistererWith(labels, m.ApplicationRegistry)

	appAddr := DefaultApplicationMetricsAddress
	if cfg.ApplicationMetricsAddress != nil {
		appAddr = *cfg.ApplicationMetricsAddress
	}
	if appAddr != "" {
		m.ApplicationServer = newServer(appAddr, m.ApplicationRegistry)
	}

	return m
}

// Registerer returns the service-labelled registerer of the application registry.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registerer
}

// Namespace returns the metric name prefix.
func (m *Metrics) Namespace() string {
	return m.namespace
}

func newServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}

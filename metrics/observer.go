package metrics

import (
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// OperationObserver turns observability.OperationContext events into Prometheus metrics:
//
//   - <ns>_operations_total{component,operation,status}
//   - <ns>_operation_duration_seconds{component,operation}
//   - <ns>_operation_size_total{component,operation}
//
// status is "ok" or "error".
type OperationObserver struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	size       *prometheus.CounterVec
}

// NewOperationObserver creates the operation metrics and registers them with reg.
func NewOperationObserver(reg prometheus.Registerer, namespace string) (*OperationObserver, error) {
	o := &OperationObserver{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Completed operations by component, operation and status.",
		}, []string{"component", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of completed operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"component", "operation"}),
		size: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_size_total",
			Help:      "Fields, rows or bytes handled by completed operations.",
		}, []string{"component", "operation"}),
	}

	for _, c := range []prometheus.Collector{o.operations, o.duration, o.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ObserveOperation implements observability.Observer.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	status := "ok"
	if ctx.Error != nil {
		status = "error"
	}

	o.operations.WithLabelValues(ctx.Component, ctx.Operation, status).Inc()
	o.duration.WithLabelValues(ctx.Component, ctx.Operation).Observe(ctx.Duration.Seconds())
	if ctx.Size > 0 {
		o.size.WithLabelValues(ctx.Component, ctx.Operation).Add(float64(ctx.Size))
	}
}

package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/aalemi-dev/portmeta/observability"
	"go.uber.org/fx"
)

// Logger is the logging interface the metrics lifecycle needs.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// FXModule provides *Metrics, an *OperationObserver and the observability.Observer
// interface backed by it, and serves the metric endpoints while the app runs.
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		NewOperationObserverWithDI,
		fx.Annotate(
			func(o *OperationObserver) observability.Observer { return o },
			fx.As(new(observability.Observer)),
		),
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// NewOperationObserverWithDI creates the operation observer on the application registry.
func NewOperationObserverWithDI(m *Metrics) (*OperationObserver, error) {
	return NewOperationObserver(m.Registerer(), m.Namespace())
}

// MetricsLifecycleParams groups the dependencies of RegisterMetricsLifecycle.
type MetricsLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    Logger `optional:"true"`
}

// RegisterMetricsLifecycle starts the configured servers on start and shuts them down on stop.
// Listeners are opened synchronously so a busy port fails the start.
func RegisterMetricsLifecycle(params MetricsLifecycleParams) {
	m := params.Metrics
	servers := []*http.Server{m.SystemServer, m.ApplicationServer}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, srv := range servers {
				if srv == nil {
					continue
				}
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return err
				}
				logInfo(params.Logger, "Starting metrics server", map[string]interface{}{
					"address": ln.Addr().String(),
				})
				go func(srv *http.Server) {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logError(params.Logger, "Metrics server failed", err)
					}
				}(srv)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var errs []error
			for _, srv := range servers {
				if srv != nil {
					errs = append(errs, srv.Shutdown(ctx))
				}
			}
			return errors.Join(errs...)
		},
	})
}

func logInfo(l Logger, msg string, fields map[string]interface{}) {
	if l != nil {
		l.Info(msg, nil, fields)
	}
}

func logError(l Logger, msg string, err error) {
	if l != nil {
		l.Error(msg, err)
	}
}

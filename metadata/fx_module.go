package metadata

import (
	"context"

	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"go.uber.org/fx"
)

// FXModule is an fx module that provides the metadata Manager.
//
// The module expects a Config in the container. Logger, Observer, Tracer, IDMapper,
// Loader and Updater are optional: when a Loader is present the published map is
// bootstrapped from it on start, and when an Updater is present and Config.FlushOnStop
// is set a final reconciliation runs on stop.
var FXModule = fx.Module("metadata",
	fx.Provide(NewManagerWithDI),
	fx.Invoke(RegisterManagerLifecycle),
)

// ManagerParams groups the dependencies needed to create a Manager via dependency injection.
type ManagerParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   tracer.Tracer          `optional:"true"`
	IDMapper IDMapper               `optional:"true"`
}

// NewManagerWithDI creates a Manager and injects the optional dependencies.
func NewManagerWithDI(params ManagerParams) *Manager {
	m := NewManager(params.Config)

	if params.Logger != nil {
		m.logger = params.Logger
	}
	if params.Observer != nil {
		m.observer = params.Observer
	}
	if params.Tracer != nil {
		m.tracer = params.Tracer
	}
	if params.IDMapper != nil {
		m.mapper = params.IDMapper
	}

	return m
}

// ManagerLifecycleParams groups the dependencies needed for Manager lifecycle management.
type ManagerLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *Manager
	Loader    Loader  `optional:"true"`
	Updater   Updater `optional:"true"`
}

// RegisterManagerLifecycle registers lifecycle hooks for the Manager:
// loading known metadata on start and flushing pending diffs on stop.
func RegisterManagerLifecycle(params ManagerLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if params.Loader == nil {
				return nil
			}
			return params.Manager.LoadFrom(ctx, params.Loader)
		},
		OnStop: func(ctx context.Context) error {
			m := params.Manager
			if !m.cfg.FlushOnStop || params.Updater == nil || m.PendingCount() == 0 {
				return nil
			}
			if err := m.ProcessPendingUpdates(ctx, params.Updater); err != nil {
				m.logError(ctx, "Failed to flush pending metadata on stop", err, map[string]interface{}{
					"version": m.GetVersion(),
				})
				return err
			}
			return nil
		},
	})
}

package minio

import (
	"context"
	"sync"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides the metadata archive.
//
// The module provides:
// 1. *Archive (concrete type) for direct use
// 2. metadata.Loader so the archive can seed a Manager on startup
// 3. Lifecycle management for the connection monitor
//
// Usage:
//
//	app := fx.New(
//	    minio.FXModule,
//	    // other modules...
//	)
var FXModule = fx.Module("minio",
	fx.Provide(
		NewArchiveWithDI,
		fx.Annotate(
			func(a *Archive) metadata.Loader { return a },
			fx.As(new(metadata.Loader)),
		),
	),
	fx.Invoke(RegisterLifecycle),
)

type ArchiveParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   tracer.Tracer          `optional:"true"`
}

func NewArchiveWithDI(params ArchiveParams) (*Archive, error) {
	archive, err := NewArchive(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		archive.logger = params.Logger
	}
	if params.Observer != nil {
		archive.observer = params.Observer
	}
	if params.Tracer != nil {
		archive.tracer = params.Tracer
	}

	return archive, nil
}

type ArchiveLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Archive   *Archive
}

// RegisterLifecycle starts the connection monitor with the application and stops
// it on shutdown.
func RegisterLifecycle(params ArchiveLifecycleParams) {
	if params.Archive == nil {
		return
	}

	wg := &sync.WaitGroup{}
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				params.Archive.monitorConnection(context.WithoutCancel(ctx))
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Archive.logInfo(ctx, "closing metadata archive", nil)
			params.Archive.GracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}

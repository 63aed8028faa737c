package store

import (
	"context"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides the metadata store.
//
// The module provides:
// 1. *Store (concrete type) for direct use
// 2. metadata.Loader backed by the store, so the metadata module loads from it on start
// 3. Lifecycle management: migration, connection monitoring and shutdown
//
// Usage:
//
//	app := fx.New(
//	    metadata.FXModule,
//	    store.FXModule,
//	    fx.Provide(func() store.Config {
//	        return store.Config{Driver: store.DriverPostgres, AutoMigrate: true}
//	    }),
//	)
var FXModule = fx.Module("store",
	fx.Provide(
		NewStoreWithDI,
		fx.Annotate(
			func(s *Store) metadata.Loader { return s },
			fx.As(new(metadata.Loader)),
		),
	),
)

// StoreParams groups the dependencies needed to create a Store
type StoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Logger    Logger                 `optional:"true"`
	Observer  observability.Observer `optional:"true"`
}

// NewStoreWithDI creates a Store using dependency injection and registers its lifecycle.
// Hooks are appended on construction, so the store is migrated before anything that
// depends on it starts, and closed after those have stopped.
func NewStoreWithDI(params StoreParams) (*Store, error) {
	s, err := NewStore(params.Config)
	if err != nil {
		return nil, err
	}
	s.logger = params.Logger
	s.observer = params.Observer

	ctx, cancel := context.WithCancel(context.Background())
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if params.Config.AutoMigrate {
				if err := s.Migrate(startCtx); err != nil {
					return err
				}
				s.logInfo(startCtx, "Migrated metadata store", map[string]interface{}{
					"driver": s.cfg.Driver,
				})
			}
			go s.MonitorConnection(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return s.Close()
		},
	})
	return s, nil
}

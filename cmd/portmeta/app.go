package main

import (
	"github.com/aalemi-dev/portmeta/config"
	"github.com/aalemi-dev/portmeta/kafka"
	"github.com/aalemi-dev/portmeta/logger"
	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/metrics"
	"github.com/aalemi-dev/portmeta/minio"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/rediscache"
	"github.com/aalemi-dev/portmeta/registry"
	"github.com/aalemi-dev/portmeta/store"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/aalemi-dev/portmeta/updaters"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// commonOptions provides configuration, logging, metrics and tracing.
func commonOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg.Metadata, cfg.Logger, cfg.Metrics, cfg.Tracer, cfg.Retry),
		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		fx.Provide(componentLoggers),
	)
}

// fxLogger routes fx's own events through the application logger.
var fxLogger = fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l.Named("fx").Zap}
})

// loggers hands every package its own Logger interface, backed by a named child
// of the application logger.
type loggers struct {
	fx.Out

	Metadata   metadata.Logger
	Metrics    metrics.Logger
	Updaters   updaters.Logger
	Registry   registry.Logger
	Kafka      kafka.Logger
	Store      store.Logger
	Minio      minio.Logger
	RedisCache rediscache.Logger
}

func componentLoggers(l *logger.LoggerClient) loggers {
	return loggers{
		Metadata:   l.Named("metadata"),
		Metrics:    l.Named("metrics"),
		Updaters:   l.Named("updaters"),
		Registry:   l.Named("registry"),
		Kafka:      l.Named("kafka"),
		Store:      l.Named("store"),
		Minio:      l.Named("minio"),
		RedisCache: l.Named("rediscache"),
	}
}

// backendOptions provides the concrete type of every enabled backend. The backend
// constructors are used directly rather than their FX modules, which each claim
// metadata.Updater or metadata.Loader; newUpdater and newLoader combine them instead.
func backendOptions(cfg *config.Config) fx.Option {
	b := cfg.Backends
	opts := []fx.Option{fx.Supply(b)}

	if b.Registry.Enabled {
		opts = append(opts, fx.Supply(b.Registry.Config), fx.Provide(registry.NewClientWithDI))
	}
	if b.Kafka.Enabled || b.Kafka.Follow {
		opts = append(opts, fx.Supply(b.Kafka.Config))
	}
	if b.Kafka.Enabled {
		opts = append(opts, fx.Provide(kafka.NewPublisherWithDI))
	}
	if b.Kafka.Follow {
		opts = append(opts, kafka.FollowerFXModule)
	}
	if b.Store.Enabled {
		opts = append(opts, fx.Supply(b.Store.Config), fx.Provide(store.NewStoreWithDI))
	}
	if b.Minio.Enabled {
		opts = append(opts,
			fx.Supply(b.Minio.Config),
			fx.Provide(minio.NewArchiveWithDI),
			fx.Invoke(minio.RegisterLifecycle),
		)
	}
	if b.Redis.Enabled || b.Redis.Follow {
		opts = append(opts, fx.Supply(b.Redis.Config), fx.Provide(rediscache.NewCacheWithDI))
	}
	if b.Redis.Follow {
		opts = append(opts, rediscache.FollowerFXModule)
	}
	return fx.Options(opts...)
}

type backendParams struct {
	fx.In

	Backends config.Backends
	Retry    updaters.RetryPolicy
	Logger   updaters.Logger        `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   tracer.Tracer          `optional:"true"`

	Registry  *registry.Client  `optional:"true"`
	Publisher *kafka.Publisher  `optional:"true"`
	Store     *store.Store      `optional:"true"`
	Archive   *minio.Archive    `optional:"true"`
	Cache     *rediscache.Cache `optional:"true"`
}

// newUpdater fans reconciliation out to every enabled backend, each retried on its
// own. It returns nil when no backend is enabled, so reconciliation publishes locally.
func newUpdater(p backendParams) (metadata.Updater, error) {
	var members []updaters.Member
	add := func(name string, u metadata.Updater) {
		members = append(members, updaters.Member{
			Name:    name,
			Updater: updaters.WithRetryLogger(u, p.Retry, p.Logger),
		})
	}
	if p.Registry != nil {
		add("registry", p.Registry)
	}
	if p.Publisher != nil {
		add("kafka", p.Publisher)
	}
	if p.Store != nil {
		add("store", p.Store)
	}
	if p.Archive != nil {
		add("minio", p.Archive)
	}
	// A follow-only cache is not a push target.
	if p.Cache != nil && p.Backends.Redis.Enabled {
		add("redis", p.Cache)
	}
	if len(members) == 0 {
		return nil, nil
	}

	group, err := updaters.NewGroup(members...)
	if err != nil {
		return nil, err
	}
	return group.WithObserver(p.Observer).WithTracer(p.Tracer), nil
}

// registerManagerGauges exports the version and pending count of the Manager.
func registerManagerGauges(m *metrics.Metrics, mgr *metadata.Manager) error {
	return metrics.RegisterManagerGauges(m.Registerer(), m.Namespace(), mgr)
}

// newLoader tries the authority first, then the local backends.
func newLoader(p backendParams) metadata.Loader {
	var loaders []metadata.Loader
	if p.Registry != nil {
		loaders = append(loaders, p.Registry)
	}
	if p.Store != nil {
		loaders = append(loaders, p.Store)
	}
	if p.Cache != nil {
		loaders = append(loaders, p.Cache)
	}
	if p.Archive != nil {
		loaders = append(loaders, p.Archive)
	}
	if len(loaders) == 0 {
		return nil
	}
	return updaters.Fallback(loaders...)
}

package kafka

import (
	"context"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides the Publisher as the metadata.Updater of the
// application.
//
// Usage:
//
//	app := fx.New(
//	    metadata.FXModule,
//	    kafka.FXModule,
//	    fx.Provide(func() kafka.Config {
//	        return kafka.Config{Brokers: []string{"localhost:9092"}, Origin: "node-1"}
//	    }),
//	)
var FXModule = fx.Module("kafka",
	fx.Provide(
		NewPublisherWithDI,
		fx.Annotate(
			func(p *Publisher) metadata.Updater { return p },
			fx.As(new(metadata.Updater)),
		),
	),
)

// FollowerFXModule runs a Follower that feeds the *metadata.Manager of the container.
var FollowerFXModule = fx.Module("kafka_follower",
	fx.Provide(NewFollowerWithDI),
	fx.Invoke(RegisterFollowerLifecycle),
)

// KafkaParams groups the dependencies needed to create a Publisher or Follower
type KafkaParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   tracer.Tracer          `optional:"true"`
}

// PublisherParams groups the dependencies needed to create a Publisher
type PublisherParams struct {
	fx.In

	KafkaParams
	Lifecycle fx.Lifecycle
}

// NewPublisherWithDI creates a Publisher using dependency injection.
// The close hook is appended on construction, so it runs after the stop hooks of
// everything that depends on the Publisher, such as the metadata flush.
func NewPublisherWithDI(params PublisherParams) (*Publisher, error) {
	p, err := NewPublisher(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		p.WithLogger(params.Logger)
	}
	p.observer = params.Observer
	p.tracer = params.Tracer

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})
	return p, nil
}

// FollowerParams groups the dependencies needed to create a Follower
type FollowerParams struct {
	fx.In

	KafkaParams
	Manager *metadata.Manager
}

// NewFollowerWithDI creates a Follower feeding the container's Manager.
func NewFollowerWithDI(params FollowerParams) (*Follower, error) {
	f, err := NewFollower(params.Config, params.Manager)
	if err != nil {
		return nil, err
	}
	f.logger = params.Logger
	f.observer = params.Observer
	f.tracer = params.Tracer
	return f, nil
}

// RegisterFollowerLifecycle starts the Follower with the application and stops it on
// shutdown.
func RegisterFollowerLifecycle(lc fx.Lifecycle, f *Follower) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			f.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return f.Close()
		},
	})
}

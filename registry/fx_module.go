package registry

import (
	"context"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides the authority client.
//
// The module provides:
// 1. *Client (concrete type) for direct use
// 2. Authority interface for dependency injection
// 3. metadata.Updater and metadata.Loader backed by the client, so the metadata
// module pushes to and loads from the authority
//
// Usage:
//
//	app := fx.New(
//	    metadata.FXModule,
//	    registry.FXModule,
//	    fx.Provide(
//	        func() registry.Config {
//	            return registry.Config{URL: "http://localhost:8085"}
//	        },
//	    ),
//	)
var FXModule = fx.Module("registry",
	fx.Provide(
		NewClientWithDI,
		fx.Annotate(
			func(c *Client) Authority { return c },
			fx.As(new(Authority)),
		),
		fx.Annotate(
			func(c *Client) metadata.Updater { return c },
			fx.As(new(metadata.Updater)),
		),
		fx.Annotate(
			func(c *Client) metadata.Loader { return c },
			fx.As(new(metadata.Loader)),
		),
	),
)

// AuthorityFXModule serves the *metadata.Manager of the container as the authority.
var AuthorityFXModule = fx.Module("registry_authority",
	fx.Provide(NewAuthorityServerWithDI),
	fx.Invoke(RegisterAuthorityLifecycle),
)

// ClientParams groups the dependencies needed to create an authority client
type ClientParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   tracer.Tracer          `optional:"true"`
}

// NewClientWithDI creates a new authority client using dependency injection.
//
// Returns the concrete *Client type.
func NewClientWithDI(params ClientParams) (*Client, error) {
	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		client.logger = params.Logger
	}
	if params.Observer != nil {
		client.observer = params.Observer
	}
	if params.Tracer != nil {
		client.tracer = params.Tracer
	}
	return client, nil
}

// AuthorityParams groups the dependencies needed to create an authority server
type AuthorityParams struct {
	fx.In

	Config  AuthorityConfig
	Manager *metadata.Manager
	Sink    metadata.Updater `optional:"true"`
	Logger  Logger           `optional:"true"`
	Tracer  tracer.Tracer    `optional:"true"`
}

// NewAuthorityServerWithDI creates an authority server using dependency injection.
func NewAuthorityServerWithDI(params AuthorityParams) *AuthorityServer {
	a := NewAuthorityServer(params.Config, params.Manager)
	a.sink = params.Sink
	if params.Logger != nil {
		a.logger = params.Logger
	}
	if params.Tracer != nil {
		a.tracer = params.Tracer
	}
	return a
}

// AuthorityLifecycleParams groups the dependencies needed for authority lifecycle management
type AuthorityLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Server    *AuthorityServer
}

// RegisterAuthorityLifecycle starts the authority with the application and shuts it
// down gracefully on stop.
func RegisterAuthorityLifecycle(params AuthorityLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return params.Server.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return params.Server.Stop(ctx)
		},
	})
}

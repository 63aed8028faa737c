package rediscache

import (
	"context"
	"sync"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"go.uber.org/fx"
)

// FXModule provides the *Cache. The client is closed on shutdown after every
// component that depends on it has stopped.
var FXModule = fx.Module("rediscache",
	fx.Provide(NewCacheWithDI),
)

// FollowerFXModule follows the update channel into the *metadata.Manager of the
// container while the application runs.
var FollowerFXModule = fx.Module("rediscache_follower",
	fx.Invoke(RegisterFollowerLifecycle),
)

type CacheParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Logger    Logger                 `optional:"true"`
	Observer  observability.Observer `optional:"true"`
}

func NewCacheWithDI(params CacheParams) (*Cache, error) {
	c, err := NewCache(params.Config)
	if err != nil {
		return nil, err
	}
	c.logger = params.Logger
	c.observer = params.Observer

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

type FollowerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cache     *Cache
	Manager   *metadata.Manager
}

// RegisterFollowerLifecycle runs Cache.Follow between start and stop.
func RegisterFollowerLifecycle(params FollowerParams) {
	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc
	)
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var followCtx context.Context
			followCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := params.Cache.Follow(followCtx, params.Manager); err != nil {
					params.Cache.logWarn(followCtx, "Redis follower stopped", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}

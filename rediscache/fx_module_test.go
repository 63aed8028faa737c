package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestFXModule_Follow(t *testing.T) {
	mr := miniredis.RunT(t)

	var m *metadata.Manager
	app := fxtest.New(t,
		FXModule,
		FollowerFXModule,
		metadata.FXModule,
		fx.Supply(Config{Addr: mr.Addr(), Origin: "node-1"}, metadata.Config{}),
		fx.Populate(&m),
	)
	app.RequireStart()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(DefaultChannel)[DefaultChannel] == 1
	}, time.Second, 10*time.Millisecond)

	peer, err := NewCache(Config{Addr: mr.Addr(), Origin: "node-2"})
	require.NoError(t, err)
	defer peer.Close()
	require.NoError(t, peer.Push(context.Background(), person(metadata.Field{ID: 1, Name: "name", Type: 1})))

	require.Eventually(t, func() bool {
		_, ok := m.Snapshot(7)
		return ok
	}, time.Second, 10*time.Millisecond)

	app.RequireStop()
}

package main

import (
	"github.com/aalemi-dev/portmeta/config"
	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a registry node",
		Long: `Run a registry node. On start the published metadata is loaded from the first
enabled backend that answers. Pending metadata is then reconciled every
metadata.reconcile_interval to every enabled backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app := fx.New(serveOptions(cfg), fxLogger)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

// serveOptions composes a registry node.
func serveOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		commonOptions(cfg),
		backendOptions(cfg),
		fx.Provide(newUpdater, newLoader),
		metadata.FXModule,
		fx.Invoke(registerManagerGauges),
		fx.Invoke(registerReconciler),
	)
}

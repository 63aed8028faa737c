package main

import (
	"github.com/aalemi-dev/portmeta/config"
	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/registry"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newAuthorityCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "authority",
		Short: "Run the central metadata authority",
		Long: `Run the HTTP metadata authority. Enabled backends other than the registry itself
persist every accepted push and seed the authority on start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app := fx.New(authorityOptions(cfg), fxLogger)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

// authorityOptions composes an authority. The registry backend is ignored: an
// authority does not push to another authority.
func authorityOptions(cfg *config.Config) fx.Option {
	backends := *cfg
	backends.Backends.Registry.Enabled = false

	return fx.Options(
		commonOptions(cfg),
		backendOptions(&backends),
		fx.Provide(newUpdater, newLoader),
		fx.Supply(cfg.Authority),
		metadata.FXModule,
		fx.Invoke(registerManagerGauges),
		registry.AuthorityFXModule,
	)
}

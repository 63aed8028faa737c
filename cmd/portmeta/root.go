package main

import (
	"fmt"
	"runtime"

	"github.com/aalemi-dev/portmeta/config"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// newRootCommand creates the root command with every subcommand attached.
func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "portmeta",
		Short: "Type metadata registry for binary serialization",
		Long: `portmeta keeps the field metadata of serialized types consistent across processes.

serve runs a registry node that reconciles pending metadata to the configured backends.
authority runs the central HTTP authority that registry nodes push to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration file (default: portmeta.yaml in . or /etc/portmeta)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newAuthorityCommand(load))
	rootCmd.AddCommand(newTypesCommand(load))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

type configLoader func() (*config.Config, error)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portmeta %s (commit %s, %s)\n", Version, GitCommit, runtime.Version())
		},
	}
}

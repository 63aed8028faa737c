package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aalemi-dev/portmeta/registry"
	"github.com/spf13/cobra"
)

func newTypesCommand(load configLoader) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the types known to the authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			clientCfg := cfg.Backends.Registry.Config
			if url != "" {
				clientCfg.URL = url
			}
			client, err := registry.NewClient(clientCfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			version, err := client.Version(ctx)
			if err != nil {
				return err
			}
			updates, err := client.Load(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version %d, %d types\n", version, len(updates))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE ID\tNAME\tFIELDS")
			for _, u := range updates {
				fmt.Fprintf(w, "%d\t%s\t%d\n", u.TypeID, u.TypeName, len(u.Fields))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "authority URL (default: backends.registry.url)")
	return cmd
}

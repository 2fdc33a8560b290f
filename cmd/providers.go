package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoforge/mapcli/internal/basemap"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available basemap providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range basemap.Names() {
			p, err := basemap.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s max zoom %2d  %s\n", p.Name, p.MaxZoom, p.Attribution)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caselens/caselens/internal/api"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the analysis server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(cfg.ServerURL)
		if !client.Health(cmd.Context()) {
			return fmt.Errorf("server unreachable at %s", cfg.ServerURL)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

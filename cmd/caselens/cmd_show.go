package main

import (
	"github.com/spf13/cobra"

	"github.com/caselens/caselens/internal/api"
)

// showCmd is the non-streaming retrieval fallback: it fetches the final
// result snapshot for a run directly.
var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Fetch the final result of a run without streaming",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(cfg.ServerURL)
		result, err := client.GetCase(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printFinalResult(cmd.OutOrStdout(), result)
		return nil
	},
}

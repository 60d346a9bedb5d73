package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caselens/caselens/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the local archive of completed analyses",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived cases, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := archive.NewStore(cfg.ArchivePath)
		records := store.Load()
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "archive is empty")
			return nil
		}
		for _, rec := range records {
			summary := rec.Result.FactPattern.Summary
			if len(summary) > 60 {
				summary = summary[:60] + "..."
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  run=%s  %s\n",
				rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.RunID, summary)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := archive.NewStore(cfg.ArchivePath)
		store.Load()
		rec, ok := store.Find(args[0])
		if !ok {
			return fmt.Errorf("no archived case with id %s", args[0])
		}
		printFinalResult(cmd.OutOrStdout(), rec.Result)
		return nil
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one archived case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := archive.NewStore(cfg.ArchivePath)
		store.Load()
		return store.Delete(args[0])
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
}

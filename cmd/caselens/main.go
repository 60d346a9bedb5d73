// caselens is a client for a two-phase legal-analysis pipeline: it submits a
// case narrative, follows the run's event stream, and archives completed
// analyses locally.
//
// Usage:
//
//	caselens analyze [-f file | text...]
//	caselens archive list|show <id>|delete <id>
//	caselens show <run-id>
//	caselens health
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caselens/caselens/internal/config"
	"github.com/caselens/caselens/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "caselens",
	Short: "Streaming client for the caselens legal-analysis pipeline",
	Long: "Caselens submits a case narrative to the analysis pipeline, follows the\n" +
		"run's push-event stream, and keeps a local archive of completed analyses.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

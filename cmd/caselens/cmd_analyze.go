package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/archive"
	"github.com/caselens/caselens/internal/run"
	"github.com/caselens/caselens/internal/stream"
)

var analyzeFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Submit a case narrative and follow the analysis run",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "read the narrative from a file instead of arguments")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := narrativeText(args)
	if err != nil {
		return err
	}
	if n := utf8.RuneCountInString(text); n < api.MinCaseTextLen || n > api.MaxCaseTextLen {
		return fmt.Errorf("narrative must be between %d and %d characters, got %d",
			api.MinCaseTextLen, api.MaxCaseTextLen, n)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient := api.NewClient(cfg.ServerURL)

	if cfg.Password != "" {
		valid, err := apiClient.ValidatePassword(ctx, cfg.Password)
		if err != nil {
			return err
		}
		if !valid {
			return fmt.Errorf("access denied: invalid password")
		}
	}

	controller := run.NewController(apiClient, stream.NewClient(cfg.ServerURL), archive.NewStore(cfg.ArchivePath))
	controller.Start()
	defer controller.Close()
	controller.Submit(text)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return followRun(ctx, controller)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	final := controller.State()
	if final.Error != "" {
		return fmt.Errorf("analysis failed: %s", final.Error)
	}
	printResult(cmd.OutOrStdout(), final)
	return nil
}

// followRun prints run progress as state transitions arrive, returning once
// the run is terminal and any archive write has been observed.
func followRun(ctx context.Context, controller *run.Controller) error {
	var prev run.State
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-controller.Updates():
		}

		s := controller.State()
		printProgress(os.Stderr, prev, s)
		if s.Finished() {
			return nil
		}
		prev = s
	}
}

func printProgress(w *os.File, prev, s run.State) {
	if prev.RunID == "" && s.RunID != "" && s.SelectedArchiveID == "" {
		fmt.Fprintf(w, "run %s started\n", s.RunID)
	}
	if prev.FactPattern == nil && s.FactPattern != nil {
		fmt.Fprintf(w, "fact pattern extracted: %d issue(s), jurisdiction %s\n",
			len(s.FactPattern.Issues), s.FactPattern.Jurisdiction)
	}
	if !prev.Wave1Active && s.Wave1Active {
		fmt.Fprintln(w, "wave 1: searching statutes...")
	}
	if prev.Wave1Active && !s.Wave1Active {
		fmt.Fprintf(w, "wave 1 complete: %d statute(s)\n", len(s.Statutes))
	}
	if !prev.Wave2Active && s.Wave2Active {
		fmt.Fprintln(w, "wave 2: searching case law...")
	}
	if prev.Wave2Active && !s.Wave2Active {
		fmt.Fprintf(w, "wave 2 complete: %d case(s)\n", len(s.CaseLaw))
	}
	if len(s.Statutes) > len(prev.Statutes) && s.Wave1Active {
		last := s.Statutes[len(s.Statutes)-1]
		fmt.Fprintf(w, "  found %s %s (confidence %.2f)\n", last.Code, last.Section, last.Confidence)
	}
	if len(s.CaseLaw) > len(prev.CaseLaw) && s.Wave2Active {
		last := s.CaseLaw[len(s.CaseLaw)-1]
		fmt.Fprintf(w, "  found %s (confidence %.2f)\n", last.CaseName, last.Confidence)
	}
	if s.FrameErrors > prev.FrameErrors {
		fmt.Fprintf(w, "  dropped %d malformed frame(s)\n", s.FrameErrors-prev.FrameErrors)
	}
}

func narrativeText(args []string) (string, error) {
	if analyzeFile != "" {
		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("provide the narrative as arguments or with --file")
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

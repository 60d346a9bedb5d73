package main

import (
	"fmt"
	"io"

	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/run"
)

func printResult(w io.Writer, s run.State) {
	printFinalResult(w, api.FinalResult{
		RunID:       s.RunID,
		FactPattern: derefFactPattern(s.FactPattern),
		Statutes:    s.Statutes,
		CaseLaw:     s.CaseLaw,
	})
	if s.ArchiveSaved {
		fmt.Fprintln(w, "\nsaved to local archive")
	}
}

func printFinalResult(w io.Writer, result api.FinalResult) {
	fmt.Fprintf(w, "Run %s\n\n", result.RunID)
	fmt.Fprintf(w, "Summary: %s\n", result.FactPattern.Summary)
	if len(result.FactPattern.Parties) > 0 {
		fmt.Fprintf(w, "Parties: %v\n", result.FactPattern.Parties)
	}
	fmt.Fprintf(w, "Jurisdiction: %s\n", result.FactPattern.Jurisdiction)

	for _, issue := range result.FactPattern.Issues {
		fmt.Fprintf(w, "\nIssue %s: %s\n  %s\n", issue.ID, issue.Label, issue.Description)
	}

	fmt.Fprintf(w, "\nStatutes (%d):\n", len(result.Statutes))
	for _, st := range result.Statutes {
		fmt.Fprintf(w, "  %s %s: %s (confidence %.2f)\n", st.Code, st.Section, st.Title, st.Confidence)
		if st.RelevanceSummary != "" {
			fmt.Fprintf(w, "    %s\n", st.RelevanceSummary)
		}
		if st.URL != "" {
			fmt.Fprintf(w, "    %s\n", st.URL)
		}
	}

	fmt.Fprintf(w, "\nCase law (%d):\n", len(result.CaseLaw))
	for _, c := range result.CaseLaw {
		fmt.Fprintf(w, "  %s, %s (%s %s) (confidence %.2f)\n", c.CaseName, c.Citation, c.Court, c.DateFiled, c.Confidence)
		if c.RelevanceSummary != "" {
			fmt.Fprintf(w, "    %s\n", c.RelevanceSummary)
		}
		if c.URL != "" {
			fmt.Fprintf(w, "    %s\n", c.URL)
		}
	}
}

func derefFactPattern(fp *api.FactPattern) api.FactPattern {
	if fp == nil {
		return api.FactPattern{}
	}
	return *fp
}

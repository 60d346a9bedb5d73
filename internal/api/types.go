// Package api holds the data contract shared with the analysis pipeline and
// the HTTP client for its non-streaming endpoints.
package api

import "time"

// LegalIssue is one distinct legal question extracted from the narrative.
type LegalIssue struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Description   string   `json:"description"`
	RelevantFacts []string `json:"relevant_facts"`
}

// FactPattern is the structured summary derived once per run.
type FactPattern struct {
	Summary      string       `json:"summary"`
	Parties      []string     `json:"parties"`
	Issues       []LegalIssue `json:"issues"`
	Jurisdiction string       `json:"jurisdiction"`
}

// StatuteResult is one statute match produced during wave 1.
type StatuteResult struct {
	Code             string  `json:"code"`
	Section          string  `json:"section"`
	Title            string  `json:"title"`
	FullText         string  `json:"full_text"`
	URL              string  `json:"url"`
	RelevanceSummary string  `json:"relevance_summary"`
	CaseSnippet      string  `json:"case_snippet"`
	Confidence       float64 `json:"confidence"`
	SourceIssueID    string  `json:"source_issue_id"`
}

// CaseLawResult is one case-law match produced during wave 2.
type CaseLawResult struct {
	CaseName         string   `json:"case_name"`
	Citation         string   `json:"citation"`
	Court            string   `json:"court"`
	DateFiled        string   `json:"date_filed"`
	URL              string   `json:"url"`
	Snippet          string   `json:"snippet"`
	RelevanceSummary string   `json:"relevance_summary"`
	RelatedStatutes  []string `json:"related_statutes"`
	Confidence       float64  `json:"confidence"`
	SourceIssueID    string   `json:"source_issue_id"`
}

// FinalResult is the authoritative terminal snapshot of a run.
type FinalResult struct {
	RunID       string          `json:"run_id"`
	FactPattern FactPattern     `json:"fact_pattern"`
	Statutes    []StatuteResult `json:"statutes"`
	CaseLaw     []CaseLawResult `json:"case_law"`
}

// ArchivedCase is one completed run stored in the local archive. Records are
// immutable after creation; the id is independent of the run id.
type ArchivedCase struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	InputText string      `json:"input_text"`
	Result    FinalResult `json:"result"`
	CreatedAt time.Time   `json:"created_at"`
}

const (
	// MinCaseTextLen is the minimum accepted narrative length, in runes.
	MinCaseTextLen = 20
	// MaxCaseTextLen is the maximum accepted narrative length, in runes.
	MaxCaseTextLen = 20000
)

// Package stream implements the push-channel client for run event streams.
//
// A subscription delivers typed events to a handler in server order. Payloads
// are validated against their expected shape at this boundary: a frame that
// does not parse is reported as a frame error and never terminates the
// subscription.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/caselens/caselens/internal/api"
)

// Type is the event-type discriminator carried by each frame. The set is
// closed and fixed.
type Type string

const (
	TypeRunStarted      Type = "run_started"
	TypeFactPattern     Type = "fact_pattern"
	TypeWave1Started    Type = "wave1_started"
	TypeStatuteProgress Type = "statute_progress"
	TypeStatuteFound    Type = "statute_found"
	TypeWave1Complete   Type = "wave1_complete"
	TypeWave2Started    Type = "wave2_started"
	TypeCaselawProgress Type = "caselaw_progress"
	TypeCaselawFound    Type = "caselaw_found"
	TypeWave2Complete   Type = "wave2_complete"
	TypeRunComplete     Type = "run_complete"
	TypeError           Type = "error"
)

// Event is a parsed, validated stream event.
type Event interface {
	EventType() Type
}

// RunStarted announces the run id at the head of the stream.
type RunStarted struct {
	RunID string `json:"run_id"`
}

func (RunStarted) EventType() Type { return TypeRunStarted }

// FactPatternEvent carries the extracted fact pattern, produced once per run.
type FactPatternEvent struct {
	FactPattern api.FactPattern
}

func (FactPatternEvent) EventType() Type { return TypeFactPattern }

// Wave1Started marks the start of the statute wave.
type Wave1Started struct {
	IssueCount int `json:"issue_count"`
}

func (Wave1Started) EventType() Type { return TypeWave1Started }

// StatuteProgress is an informational liveness event for the statute wave.
type StatuteProgress struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}

func (StatuteProgress) EventType() Type { return TypeStatuteProgress }

// StatuteFound carries one incremental statute match.
type StatuteFound struct {
	Statute api.StatuteResult
}

func (StatuteFound) EventType() Type { return TypeStatuteFound }

// Wave1Complete carries the authoritative statute list for the run.
type Wave1Complete struct {
	Statutes []api.StatuteResult `json:"statutes"`
}

func (Wave1Complete) EventType() Type { return TypeWave1Complete }

// Wave2Started marks the start of the case-law wave.
type Wave2Started struct {
	StatuteCount int `json:"statute_count"`
}

func (Wave2Started) EventType() Type { return TypeWave2Started }

// CaselawProgress is an informational liveness event for the case-law wave.
type CaselawProgress struct {
	Statute string `json:"statute"`
	Status  string `json:"status"`
	Count   int    `json:"count"`
}

func (CaselawProgress) EventType() Type { return TypeCaselawProgress }

// CaselawFound carries one incremental case-law match.
type CaselawFound struct {
	Case api.CaseLawResult
}

func (CaselawFound) EventType() Type { return TypeCaselawFound }

// Wave2Complete carries the authoritative case-law list for the run.
type Wave2Complete struct {
	CaseLaw []api.CaseLawResult `json:"case_law"`
}

func (Wave2Complete) EventType() Type { return TypeWave2Complete }

// RunComplete carries the final authoritative result snapshot.
type RunComplete struct {
	Result api.FinalResult
}

func (RunComplete) EventType() Type { return TypeRunComplete }

// ErrorEvent carries a server-reported pipeline error.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventType() Type { return TypeError }

// frame is the outer wire shape of one stream frame.
type frame struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// decodeFrame parses one frame's data into a typed event. Any parse or shape
// failure is returned as an error for frame-error reporting.
func decodeFrame(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	payload := f.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	decode := func(v any) error {
		if err := json.Unmarshal(payload, v); err != nil {
			return fmt.Errorf("malformed %s payload: %w", f.Type, err)
		}
		return nil
	}

	switch f.Type {
	case TypeRunStarted:
		var ev RunStarted
		return ev, decode(&ev)
	case TypeFactPattern:
		var ev FactPatternEvent
		return ev, decode(&ev.FactPattern)
	case TypeWave1Started:
		var ev Wave1Started
		return ev, decode(&ev)
	case TypeStatuteProgress:
		var ev StatuteProgress
		return ev, decode(&ev)
	case TypeStatuteFound:
		var ev StatuteFound
		return ev, decode(&ev.Statute)
	case TypeWave1Complete:
		var ev Wave1Complete
		return ev, decode(&ev)
	case TypeWave2Started:
		var ev Wave2Started
		return ev, decode(&ev)
	case TypeCaselawProgress:
		var ev CaselawProgress
		return ev, decode(&ev)
	case TypeCaselawFound:
		var ev CaselawFound
		return ev, decode(&ev.Case)
	case TypeWave2Complete:
		var ev Wave2Complete
		return ev, decode(&ev)
	case TypeRunComplete:
		var ev RunComplete
		return ev, decode(&ev.Result)
	case TypeError:
		var ev ErrorEvent
		return ev, decode(&ev)
	default:
		return nil, fmt.Errorf("unknown event type %q", f.Type)
	}
}

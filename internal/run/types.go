// Package run implements the run state reducer and lifecycle orchestration:
// submit a case, attach to its event stream, reduce events into view state,
// and archive the finished run exactly once.
package run

import (
	"github.com/caselens/caselens/internal/actor"
	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/stream"
)

// Mode is the user-visible view mode.
type Mode string

const (
	// ModeInput shows the narrative input surface.
	ModeInput Mode = "input"
	// ModeResults shows a live or completed run.
	ModeResults Mode = "results"
	// ModeArchiveView shows a run loaded from the archive.
	ModeArchiveView Mode = "archive-view"
)

// State is the loop-owned run state. It is only ever transformed by Reduce.
type State struct {
	Mode Mode

	// RunID is the server-assigned id of the active run, or the run id of the
	// archived result being viewed.
	RunID string
	// InputText is the narrative the active run was submitted with.
	InputText string

	// Gen increments on every run switch. Stream events carry the generation
	// they were attached under; stale-generation events are discarded before
	// touching state.
	Gen int64

	FactPattern *api.FactPattern
	Statutes    []api.StatuteResult
	CaseLaw     []api.CaseLawResult

	Wave1Active bool
	Wave2Active bool
	Loading     bool
	// Error is the run-scoped user-visible error message, empty when none.
	Error string

	// FrameErrors counts malformed frames dropped on the active stream.
	FrameErrors int

	// Archive is the current archived-case collection, newest-first.
	Archive []api.ArchivedCase
	// SelectedArchiveID is non-empty when the displayed results come from the
	// archive rather than a live run.
	SelectedArchiveID string

	// ArchiveSaved guards exactly-once persistence for the active run.
	ArchiveSaved bool
}

// NewState returns the documented initial state: input mode, empty run, no
// archive loaded yet.
func NewState() State {
	return State{Mode: ModeInput}
}

// Finished reports whether the active run has reached a terminal state and,
// when results were archived, the archive write has been observed.
func (s State) Finished() bool {
	if s.Loading {
		return false
	}
	if s.Error != "" {
		return true
	}
	if s.RunID == "" || s.FactPattern == nil {
		return false
	}
	if !s.ArchiveSaved {
		// A completed run with no content is terminal without a save.
		return len(s.Statutes) == 0 && len(s.CaseLaw) == 0
	}
	for _, rec := range s.Archive {
		if rec.RunID == s.RunID {
			return true
		}
	}
	return false
}

// Commands (caller requests).

type cmdInit struct {
	actor.InputBase
}

type cmdSubmit struct {
	actor.InputBase
	Text string
}

type cmdNewCase struct {
	actor.InputBase
}

type cmdOpenArchived struct {
	actor.InputBase
	ID string
}

type cmdDeleteArchived struct {
	actor.InputBase
	ID string
}

// Events (runtime observations).

type evRunCreated struct {
	actor.InputBase
	RunID string
	// Text is the narrative the run was created with, carried through so the
	// post-reset state retains it for archiving.
	Text string
}

type evRunCreateFailed struct {
	actor.InputBase
	Err error
}

type evStream struct {
	actor.InputBase
	Gen   int64
	Event stream.Event
}

type evStreamFrameError struct {
	actor.InputBase
	Gen int64
	Err error
}

type evStreamClosed struct {
	actor.InputBase
	Gen int64
	Err error
}

type evArchiveLoaded struct {
	actor.InputBase
	Records []api.ArchivedCase
}

// Effects interpreted by the Runtime.

type effCreateRun struct {
	actor.EffectBase
	Text string
}

type effAttachStream struct {
	actor.EffectBase
	RunID string
	Gen   int64
}

type effDetachStream struct {
	actor.EffectBase
	Gen int64
}

type effLoadArchive struct {
	actor.EffectBase
}

type effSaveArchive struct {
	actor.EffectBase
	RunID     string
	InputText string
	Result    api.FinalResult
}

type effDeleteArchive struct {
	actor.EffectBase
	ID string
}

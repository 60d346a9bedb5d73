package run

import (
	"github.com/caselens/caselens/internal/actor"
	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/stream"
)

// Reduce is the run reducer: a pure, total function over (State, Input).
//
// No I/O, no clocks, no random ids. Archive record ids and timestamps are
// assigned by the store when the save effect executes.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	switch in := input.(type) {
	case cmdInit:
		return state, []actor.Effect{effLoadArchive{}}
	case cmdSubmit:
		return reduceSubmit(state, in)
	case cmdNewCase:
		return reduceNewCase(state)
	case cmdOpenArchived:
		return reduceOpenArchived(state, in)
	case cmdDeleteArchived:
		return state, []actor.Effect{effDeleteArchive{ID: in.ID}}

	case evRunCreated:
		return reduceRunCreated(state, in)
	case evRunCreateFailed:
		state.Loading = false
		state.Error = in.Err.Error()
		return state, nil
	case evStream:
		return reduceStreamEvent(state, in)
	case evStreamFrameError:
		if in.Gen != state.Gen {
			return state, nil
		}
		state.FrameErrors++
		return state, nil
	case evStreamClosed:
		return reduceStreamClosed(state, in)
	case evArchiveLoaded:
		state.Archive = in.Records
		return maybePersist(state)
	default:
		return state, nil
	}
}

// resetRun clears all run-scoped fields, preserving the archive collection,
// and invalidates the previous stream generation.
func resetRun(state State) State {
	state.RunID = ""
	state.InputText = ""
	state.Gen++
	state.FactPattern = nil
	state.Statutes = nil
	state.CaseLaw = nil
	state.Wave1Active = false
	state.Wave2Active = false
	state.Loading = false
	state.Error = ""
	state.FrameErrors = 0
	state.SelectedArchiveID = ""
	state.ArchiveSaved = false
	return state
}

func reduceSubmit(state State, cmd cmdSubmit) (State, []actor.Effect) {
	// The run-scoped reset happens once the server assigns a run id; until
	// then the previous run remains the active one.
	state.Loading = true
	state.Error = ""
	return state, []actor.Effect{effCreateRun{Text: cmd.Text}}
}

func reduceRunCreated(state State, ev evRunCreated) (State, []actor.Effect) {
	prevGen := state.Gen
	state = resetRun(state)
	state.Mode = ModeResults
	state.RunID = ev.RunID
	state.InputText = ev.Text
	state.Loading = true
	return state, []actor.Effect{
		effDetachStream{Gen: prevGen},
		effAttachStream{RunID: ev.RunID, Gen: state.Gen},
	}
}

func reduceNewCase(state State) (State, []actor.Effect) {
	prevGen := state.Gen
	state = resetRun(state)
	state.Mode = ModeInput
	return state, []actor.Effect{effDetachStream{Gen: prevGen}}
}

func reduceOpenArchived(state State, cmd cmdOpenArchived) (State, []actor.Effect) {
	var record api.ArchivedCase
	found := false
	for _, rec := range state.Archive {
		if rec.ID == cmd.ID {
			record = rec
			found = true
			break
		}
	}
	if !found {
		return state, nil
	}

	prevGen := state.Gen
	state = resetRun(state)
	state.Mode = ModeArchiveView
	state.RunID = record.Result.RunID
	state.InputText = record.InputText
	fp := record.Result.FactPattern
	state.FactPattern = &fp
	state.Statutes = record.Result.Statutes
	state.CaseLaw = record.Result.CaseLaw
	state.SelectedArchiveID = record.ID
	return state, []actor.Effect{effDetachStream{Gen: prevGen}}
}

func reduceStreamEvent(state State, in evStream) (State, []actor.Effect) {
	if in.Gen != state.Gen {
		// Event from a detached or superseded subscription.
		return state, nil
	}

	switch ev := in.Event.(type) {
	case stream.RunStarted:
		// The run id is already known from the creation response.
	case stream.FactPatternEvent:
		if state.FactPattern == nil {
			fp := ev.FactPattern
			state.FactPattern = &fp
		}
	case stream.Wave1Started:
		state.Wave1Active = true
	case stream.StatuteFound:
		state.Statutes = append(state.Statutes[:len(state.Statutes):len(state.Statutes)], ev.Statute)
	case stream.Wave1Complete:
		// Authoritative overwrite: reconciles any dropped incremental events.
		state.Wave1Active = false
		state.Statutes = ev.Statutes
	case stream.Wave2Started:
		state.Wave2Active = true
	case stream.CaselawFound:
		state.CaseLaw = append(state.CaseLaw[:len(state.CaseLaw):len(state.CaseLaw)], ev.Case)
	case stream.Wave2Complete:
		state.Wave2Active = false
		state.CaseLaw = ev.CaseLaw
	case stream.RunComplete:
		state.Loading = false
		fp := ev.Result.FactPattern
		state.FactPattern = &fp
		state.Statutes = ev.Result.Statutes
		state.CaseLaw = ev.Result.CaseLaw
	case stream.ErrorEvent:
		// Wave-active flags are deliberately left untouched and the
		// subscription stays open; see DESIGN.md.
		state.Loading = false
		state.Error = ev.Message
	case stream.StatuteProgress, stream.CaselawProgress:
		// Informational only.
	}

	return maybePersist(state)
}

func reduceStreamClosed(state State, ev evStreamClosed) (State, []actor.Effect) {
	if ev.Gen != state.Gen {
		return state, nil
	}
	if ev.Err != nil {
		state.Loading = false
		state.Error = ev.Err.Error()
		return state, nil
	}
	if state.Loading {
		// Server closed the stream without a terminal event.
		state.Loading = false
		state.Error = "stream ended before the run completed"
	}
	return state, nil
}

// maybePersist emits a save effect the first time the persistence condition
// holds for the active run. ArchiveSaved guards exactly-once persistence no
// matter how often the condition is re-evaluated.
func maybePersist(state State) (State, []actor.Effect) {
	if state.Loading || state.Error != "" || state.ArchiveSaved {
		return state, nil
	}
	if state.RunID == "" || state.FactPattern == nil || state.SelectedArchiveID != "" {
		return state, nil
	}
	if len(state.Statutes) == 0 && len(state.CaseLaw) == 0 {
		return state, nil
	}

	state.ArchiveSaved = true
	snapshot := api.FinalResult{
		RunID:       state.RunID,
		FactPattern: *state.FactPattern,
		Statutes:    state.Statutes,
		CaseLaw:     state.CaseLaw,
	}
	return state, []actor.Effect{effSaveArchive{
		RunID:     state.RunID,
		InputText: state.InputText,
		Result:    snapshot,
	}}
}

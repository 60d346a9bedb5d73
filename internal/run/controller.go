package run

import (
	"github.com/caselens/caselens/internal/actor"
	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/archive"
	"github.com/caselens/caselens/internal/stream"
)

// Controller is the run-lifecycle facade: it owns the actor loop, the
// runtime, and the single live subscription. One Controller instance exists
// per client session.
type Controller struct {
	act     *actor.Actor[State]
	runtime *Runtime
	updates chan struct{}
}

// NewController wires the reducer, runtime, and actor together.
func NewController(apiClient *api.Client, streamClient *stream.Client, store *archive.Store) *Controller {
	c := &Controller{
		runtime: NewRuntime(apiClient, streamClient, store),
		updates: make(chan struct{}, 1),
	}
	c.act = actor.New(NewState(), Reduce, c.runtime, actor.WithHooks(actor.Hooks[State]{
		OnTransition: func(prev, next State, _ actor.Input) {
			c.notify()
		},
	}))
	return c
}

// Start launches the loop and loads the archive once.
func (c *Controller) Start() {
	c.act.Start()
	c.act.Enqueue(cmdInit{})
}

// Close detaches any live subscription and stops the loop. Safe to call
// twice.
func (c *Controller) Close() {
	c.act.Stop()
}

// Submit requests a new run for the given narrative text. Length validation
// is the caller's responsibility.
func (c *Controller) Submit(text string) {
	c.act.Enqueue(cmdSubmit{Text: text})
}

// NewCase resets to the input view, preserving the archive.
func (c *Controller) NewCase() {
	c.act.Enqueue(cmdNewCase{})
}

// OpenArchived loads an archived case into the results view.
func (c *Controller) OpenArchived(id string) {
	c.act.Enqueue(cmdOpenArchived{ID: id})
}

// DeleteArchived removes an archived case.
func (c *Controller) DeleteArchived(id string) {
	c.act.Enqueue(cmdDeleteArchived{ID: id})
}

// State returns a snapshot of the current run state.
func (c *Controller) State() State {
	return c.act.State()
}

// Updates returns a channel that receives a signal after state transitions.
// Signals are coalesced; read State after each one.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

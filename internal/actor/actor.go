// Package actor provides a small event-loop scaffold built around pure state
// reducers and declarative side-effects.
//
// One goroutine owns all mutable state. A pure reducer transforms state for
// each input and returns effects; a runtime interprets effects asynchronously
// and emits follow-up inputs back into the mailbox. Reducers stay
// deterministically testable and no state is shared across goroutines.
package actor

import (
	"context"
	"sync"
)

// Input is an item delivered to an actor mailbox. Inputs are either commands
// (caller requests) or events (runtime observations); this package does not
// distinguish the two.
type Input interface {
	isActorInput()
}

// Effect is a declarative side-effect produced by a reducer. Effects are
// data, not execution: the Runtime interprets them.
type Effect interface {
	isActorEffect()
}

// ReducerFunc is a pure state transition function.
//
// Reducers must not perform I/O, spawn goroutines, read clocks, or generate
// random ids; inject such values through inputs instead.
type ReducerFunc[S any] func(state S, input Input) (next S, effects []Effect)

// Runtime interprets effects and emits follow-up inputs back to the actor.
// Implementations must never mutate actor state directly.
type Runtime interface {
	// HandleEffects executes effects. Long-running or blocking work must run
	// asynchronously; implementations must stop emitting once ctx is canceled.
	HandleEffects(ctx context.Context, effects []Effect, emit func(Input))

	// Stop requests that the runtime stop any background work. Safe to call
	// more than once.
	Stop()
}

// Hooks provide optional observability into an actor's execution.
type Hooks[S any] struct {
	// OnTransition is called after reducing, with the applied state change.
	OnTransition func(prev S, next S, input Input)
}

// Actor runs a single-threaded event loop that owns state of type S.
type Actor[S any] struct {
	reduce  ReducerFunc[S]
	runtime Runtime
	hooks   Hooks[S]

	mu     sync.Mutex
	state  S
	inbox  chan Input
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New creates an actor with initial state, reducer, and runtime.
func New[S any](initial S, reducer ReducerFunc[S], runtime Runtime, opts ...Option[S]) *Actor[S] {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor[S]{
		reduce:  reducer,
		runtime: runtime,
		state:   initial,
		inbox:   make(chan Input, 256),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Option configures an Actor.
type Option[S any] func(*Actor[S])

// WithHooks attaches hooks for observability.
func WithHooks[S any](hooks Hooks[S]) Option[S] {
	return func(a *Actor[S]) { a.hooks = hooks }
}

// Start launches the actor loop. Idempotent.
func (a *Actor[S]) Start() {
	a.once.Do(func() { go a.loop() })
}

// Stop cancels the actor context and stops the runtime. Safe to call twice.
func (a *Actor[S]) Stop() {
	a.cancel()
	if a.runtime != nil {
		a.runtime.Stop()
	}
}

// Done returns a channel that closes when the actor loop exits.
func (a *Actor[S]) Done() <-chan struct{} { return a.done }

// Enqueue delivers an input to the actor mailbox. Returns false if the actor
// is stopped or the mailbox is full.
func (a *Actor[S]) Enqueue(input Input) bool {
	if input == nil {
		return false
	}
	select {
	case <-a.ctx.Done():
		return false
	default:
	}
	select {
	case a.inbox <- input:
		return true
	default:
		return false
	}
}

// State returns a snapshot of the current actor state. Intended for
// observability and tests; behavior should derive from reducer outputs.
func (a *Actor[S]) State() S {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actor[S]) loop() {
	defer close(a.done)

	emit := func(in Input) {
		_ = a.Enqueue(in)
	}

	for {
		select {
		case <-a.ctx.Done():
			return
		case in := <-a.inbox:
			if in == nil {
				continue
			}

			a.mu.Lock()
			prev := a.state
			a.mu.Unlock()

			next, effects := a.reduce(prev, in)

			a.mu.Lock()
			a.state = next
			a.mu.Unlock()

			if a.hooks.OnTransition != nil {
				a.hooks.OnTransition(prev, next, in)
			}

			if a.runtime != nil && len(effects) > 0 {
				a.runtime.HandleEffects(a.ctx, effects, emit)
			}
		}
	}
}

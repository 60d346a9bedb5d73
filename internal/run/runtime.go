package run

import (
	"context"
	"log/slog"
	"sync"

	"github.com/caselens/caselens/internal/actor"
	"github.com/caselens/caselens/internal/api"
	"github.com/caselens/caselens/internal/archive"
	"github.com/caselens/caselens/internal/logging"
	"github.com/caselens/caselens/internal/stream"
)

// Runtime interprets run effects: the case-creation request, stream
// attach/detach, and archive reads/writes.
//
// Runtime never mutates run state directly. It only emits events back into
// the actor mailbox via the provided emit function.
type Runtime struct {
	api    *api.Client
	stream *stream.Client
	store  *archive.Store
	log    *slog.Logger

	mu sync.Mutex
	// sub is the single live subscription, if any.
	sub    *stream.Subscription
	subGen int64
	// detachedGen is the highest generation already detached. An attach that
	// completes for a generation at or below it is torn down immediately.
	detachedGen int64
}

// NewRuntime returns a Runtime backed by the given clients and store.
func NewRuntime(apiClient *api.Client, streamClient *stream.Client, store *archive.Store) *Runtime {
	return &Runtime{
		api:    apiClient,
		stream: streamClient,
		store:  store,
		log:    logging.New("run"),
	}
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effCreateRun:
			r.createRun(ctx, e, emit)
		case effAttachStream:
			r.attachStream(ctx, e, emit)
		case effDetachStream:
			r.detachStream(e)
		case effLoadArchive:
			emit(evArchiveLoaded{Records: r.store.Load()})
		case effSaveArchive:
			r.saveArchive(e, emit)
		case effDeleteArchive:
			if err := r.store.Delete(e.ID); err != nil {
				r.log.Error("archive delete failed", "id", e.ID, "err", err)
			}
			emit(evArchiveLoaded{Records: r.store.All()})
		}
	}
}

// Stop implements actor.Runtime. It detaches any live subscription.
func (r *Runtime) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Detach()
	}
}

// createRun issues the case-creation request asynchronously so the actor loop
// is never blocked on network I/O.
func (r *Runtime) createRun(ctx context.Context, eff effCreateRun, emit func(actor.Input)) {
	go func() {
		runID, err := r.api.CreateCase(ctx, eff.Text)
		if err != nil {
			emit(evRunCreateFailed{Err: err})
			return
		}
		r.log.Info("run created", "run_id", runID)
		emit(evRunCreated{RunID: runID, Text: eff.Text})
	}()
}

func (r *Runtime) attachStream(ctx context.Context, eff effAttachStream, emit func(actor.Input)) {
	go func() {
		sub, err := r.stream.Attach(ctx, eff.RunID, &streamHandler{gen: eff.Gen, emit: emit})
		if err != nil {
			emit(evStreamClosed{Gen: eff.Gen, Err: err})
			return
		}

		r.mu.Lock()
		if eff.Gen <= r.detachedGen {
			// A run switch raced the attach; this subscription is already
			// obsolete.
			r.mu.Unlock()
			sub.Detach()
			return
		}
		prev := r.sub
		r.sub = sub
		r.subGen = eff.Gen
		r.mu.Unlock()

		if prev != nil {
			prev.Detach()
		}
	}()
}

func (r *Runtime) detachStream(eff effDetachStream) {
	r.mu.Lock()
	if eff.Gen > r.detachedGen {
		r.detachedGen = eff.Gen
	}
	var sub *stream.Subscription
	if r.sub != nil && r.subGen <= eff.Gen {
		sub = r.sub
		r.sub = nil
	}
	r.mu.Unlock()
	if sub != nil {
		sub.Detach()
	}
}

func (r *Runtime) saveArchive(eff effSaveArchive, emit func(actor.Input)) {
	// Write failures are absorbed: availability over strict durability.
	if _, err := r.store.Save(eff.RunID, eff.InputText, eff.Result); err != nil {
		r.log.Error("archive save failed", "run_id", eff.RunID, "err", err)
	}
	emit(evArchiveLoaded{Records: r.store.All()})
}

// streamHandler forwards subscription callbacks into the actor mailbox,
// tagged with the attach generation so the reducer can discard stale frames.
type streamHandler struct {
	gen  int64
	emit func(actor.Input)
}

func (h *streamHandler) OnEvent(ev stream.Event) {
	h.emit(evStream{Gen: h.gen, Event: ev})
}

func (h *streamHandler) OnFrameError(err error) {
	h.emit(evStreamFrameError{Gen: h.gen, Err: err})
}

func (h *streamHandler) OnClosed(err error) {
	h.emit(evStreamClosed{Gen: h.gen, Err: err})
}

package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingHandler captures callbacks for assertions.
type recordingHandler struct {
	mu          sync.Mutex
	events      []Event
	frameErrors []error
	closed      []error
	closeCh     chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closeCh: make(chan struct{})}
}

func (h *recordingHandler) OnEvent(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) OnFrameError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frameErrors = append(h.frameErrors, err)
}

func (h *recordingHandler) OnClosed(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, err)
	close(h.closeCh)
}

func (h *recordingHandler) snapshot() (events []Event, frameErrors []error, closed []error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...), append([]error(nil), h.frameErrors...), append([]error(nil), h.closed...)
}

func sseServer(t *testing.T, serve func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /case/r1/stream", serve)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeFrames(t *testing.T, w http.ResponseWriter, frames ...string) {
	t.Helper()
	flusher, ok := w.(http.Flusher)
	require.True(t, ok)
	w.Header().Set("Content-Type", "text/event-stream")
	for _, f := range frames {
		_, _ = w.Write([]byte(f + "\n\n"))
		flusher.Flush()
	}
}

func TestAttach_DeliversTypedEventsInOrder(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(t, w,
			`data: {"type":"run_started","payload":{"run_id":"r1"}}`,
			`data: {"type":"wave1_started","payload":{"issue_count":2}}`,
			`data: {"type":"statute_found","payload":{"code":"CIV","section":"1556","title":"t","full_text":"","url":"","relevance_summary":"","case_snippet":"","confidence":0.8,"source_issue_id":"i1"}}`,
		)
	})

	h := newRecordingHandler()
	sub, err := NewClient(srv.URL).Attach(context.Background(), "r1", h)
	require.NoError(t, err)
	defer sub.Detach()

	select {
	case <-h.closeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close")
	}

	events, frameErrors, closed := h.snapshot()
	require.Empty(t, frameErrors)
	require.Equal(t, []error{nil}, closed)
	require.Len(t, events, 3)
	require.Equal(t, RunStarted{RunID: "r1"}, events[0])
	require.Equal(t, Wave1Started{IssueCount: 2}, events[1])
	found, ok := events[2].(StatuteFound)
	require.True(t, ok)
	require.Equal(t, "1556", found.Statute.Section)
	require.InDelta(t, 0.8, found.Statute.Confidence, 1e-9)
}

func TestAttach_MalformedFrameDoesNotTerminate(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(t, w,
			`data: {"type":"wave1_started","payload":{"issue_count":1}}`,
			`data: {"type":"statute_found","payload":{"confidence":"not a number"}}`,
			`data: not json at all`,
			`data: {"type":"mystery_event","payload":{}}`,
			`data: {"type":"wave1_complete","payload":{"statutes":[]}}`,
		)
	})

	h := newRecordingHandler()
	sub, err := NewClient(srv.URL).Attach(context.Background(), "r1", h)
	require.NoError(t, err)
	defer sub.Detach()

	select {
	case <-h.closeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close")
	}

	events, frameErrors, _ := h.snapshot()
	// Bad payload shape, unparseable JSON, and an unknown discriminator each
	// count as frame errors; well-formed frames around them still arrive.
	require.Len(t, frameErrors, 3)
	require.Len(t, events, 2)
	require.Equal(t, TypeWave1Started, events[0].EventType())
	require.Equal(t, TypeWave1Complete, events[1].EventType())
}

func TestAttach_TransportFailureReportedOnce(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(t, w, `data: {"type":"wave1_started","payload":{"issue_count":1}}`)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})

	h := newRecordingHandler()
	sub, err := NewClient(srv.URL).Attach(context.Background(), "r1", h)
	require.NoError(t, err)
	defer sub.Detach()

	select {
	case <-h.closeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("transport failure not reported")
	}

	events, frameErrors, closed := h.snapshot()
	require.Len(t, events, 1)
	require.Empty(t, frameErrors)
	require.Len(t, closed, 1)
	require.Error(t, closed[0])
}

func TestAttach_NonSuccessStatusFailsSynchronously(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /case/r1/stream", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Run not found"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	h := newRecordingHandler()
	sub, err := NewClient(srv.URL).Attach(context.Background(), "r1", h)
	require.Error(t, err)
	require.Nil(t, sub)

	events, frameErrors, closed := h.snapshot()
	require.Empty(t, events)
	require.Empty(t, frameErrors)
	require.Empty(t, closed)
}

func TestDetach_IsIdempotentAndStopsDelivery(t *testing.T) {
	firstFrame := make(chan struct{})
	release := make(chan struct{})
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(t, w, `data: {"type":"wave1_started","payload":{"issue_count":1}}`)
		close(firstFrame)
		<-release
		writeFrames(t, w, `data: {"type":"wave2_started","payload":{"statute_count":1}}`)
	})
	t.Cleanup(func() { close(release) })

	h := newRecordingHandler()
	sub, err := NewClient(srv.URL).Attach(context.Background(), "r1", h)
	require.NoError(t, err)

	select {
	case <-firstFrame:
	case <-time.After(5 * time.Second):
		t.Fatal("first frame never served")
	}
	require.Eventually(t, func() bool {
		events, _, _ := h.snapshot()
		return len(events) == 1
	}, 5*time.Second, 5*time.Millisecond)

	sub.Detach()
	sub.Detach() // idempotent

	// Nothing may be delivered after Detach returns, including OnClosed.
	time.Sleep(50 * time.Millisecond)
	events, frameErrors, closed := h.snapshot()
	require.Len(t, events, 1)
	require.Empty(t, frameErrors)
	require.Empty(t, closed)
}

func TestDecodeFrame_PayloadShapes(t *testing.T) {
	t.Parallel()

	ev, err := decodeFrame([]byte(`{"type":"wave2_complete","payload":{"case_law":[{"case_name":"Doe v. Roe","citation":"","court":"","date_filed":"","url":"","snippet":"","relevance_summary":"","related_statutes":[],"confidence":0.6,"source_issue_id":"i1"}]}}`))
	require.NoError(t, err)
	wave2, ok := ev.(Wave2Complete)
	require.True(t, ok)
	require.Len(t, wave2.CaseLaw, 1)
	require.Equal(t, "Doe v. Roe", wave2.CaseLaw[0].CaseName)

	ev, err = decodeFrame([]byte(`{"type":"error","payload":{"message":"pipeline failed"}}`))
	require.NoError(t, err)
	require.Equal(t, ErrorEvent{Message: "pipeline failed"}, ev)

	// Missing payload decodes to the zero payload rather than failing.
	ev, err = decodeFrame([]byte(`{"type":"wave1_started"}`))
	require.NoError(t, err)
	require.Equal(t, Wave1Started{}, ev)

	_, err = decodeFrame([]byte(`{"type":"fact_pattern","payload":{"summary":42}}`))
	require.Error(t, err)

	_, err = decodeFrame([]byte(`{"type":"run_complete","payload":[1,2,3]}`))
	require.Error(t, err)
}

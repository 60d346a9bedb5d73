package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/caselens/caselens/internal/logging"
)

const (
	// maxFrameSize bounds a single frame's data line. Statute full texts can
	// run long, so this is generous.
	maxFrameSize = 4 * 1024 * 1024

	initialScanBuf = 64 * 1024
)

// Handler receives subscription callbacks. Calls are made from the
// subscription's reader goroutine, one at a time, in server order.
//
// Handlers must not call Detach from within a callback; enqueue the detach
// elsewhere instead.
type Handler interface {
	// OnEvent delivers one parsed, validated event.
	OnEvent(ev Event)
	// OnFrameError reports a single malformed frame. The subscription stays
	// open and subsequent well-formed frames are still delivered.
	OnFrameError(err error)
	// OnClosed is called exactly once when delivery ends: with a nil error
	// when the server closed the stream, with a non-nil error on transport
	// failure. It is not called after Detach.
	OnClosed(err error)
}

// Client opens push-style subscriptions to run event streams. It performs no
// retries and no reordering.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a stream client for the given base URL.
//
// The underlying HTTP client carries no overall timeout: streams are
// long-lived and their lifetime is bounded by Detach and the attach context.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     logging.New("stream"),
	}
}

// Attach opens the event stream for a run and starts delivering events to the
// handler. The returned subscription must be detached when no longer needed.
// A non-success attach response fails synchronously without a subscription.
func (c *Client) Attach(ctx context.Context, runID string, handler Handler) (*Subscription, error) {
	if runID == "" {
		return nil, fmt.Errorf("empty run id")
	}
	ctx, cancel := context.WithCancel(ctx)

	url := c.baseURL + "/case/" + runID + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream attach failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream attach failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	sub := &Subscription{
		runID:   runID,
		handler: handler,
		body:    resp.Body,
		cancel:  cancel,
		log:     c.log,
	}
	go sub.readLoop()
	return sub, nil
}

// Subscription is one live attachment to a run's event stream.
type Subscription struct {
	runID   string
	handler Handler
	body    io.ReadCloser
	cancel  context.CancelFunc
	log     *slog.Logger

	// mu is held for the duration of every handler callback. Detach acquires
	// it, so Detach returning guarantees no further handler invocations.
	mu       sync.Mutex
	detached bool
	closed   bool
}

// Detach stops delivery immediately. It is synchronous and idempotent: once
// it returns, no handler method will be invoked again.
func (s *Subscription) Detach() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	s.mu.Unlock()

	// Closing the body unblocks the reader goroutine's Scan.
	s.cancel()
	_ = s.body.Close()
}

// readLoop scans data frames off the response body until the stream ends or
// the subscription is detached.
func (s *Subscription) readLoop() {
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, initialScanBuf), maxFrameSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		ev, err := decodeFrame([]byte(data))
		if err != nil {
			s.log.Warn("dropping malformed frame", "run_id", s.runID, "err", err)
			s.emitFrameError(err)
			continue
		}
		if !s.emitEvent(ev) {
			return
		}
	}

	err := scanner.Err()
	if err != nil {
		err = fmt.Errorf("stream transport failed: %w", err)
	}
	s.emitClosed(err)
}

// emitEvent delivers one event unless the subscription is detached. Returns
// false once detached so the read loop can stop.
func (s *Subscription) emitEvent(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return false
	}
	s.handler.OnEvent(ev)
	return true
}

func (s *Subscription) emitFrameError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.handler.OnFrameError(err)
}

func (s *Subscription) emitClosed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || s.closed {
		return
	}
	s.closed = true
	s.handler.OnClosed(err)
}

// Package sse streams session events to HTTP clients as Server-Sent Events.
// Stored events are replayed first, then live events are read from the bus.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petal-labs/fractions/bus"
	"github.com/petal-labs/fractions/runtime"
)

// HeartbeatInterval is the default interval between SSE heartbeat comments.
const HeartbeatInterval = 15 * time.Second

// sseEvent is the JSON-serializable representation of a runtime event
// sent over the SSE stream.
type sseEvent struct {
	Kind      string         `json:"kind"`
	SessionID string         `json:"session_id"`
	EvalID    string         `json:"eval_id,omitempty"`
	Time      time.Time      `json:"time"`
	ElapsedMs int64          `json:"elapsed_ms"`
	Payload   map[string]any `json:"payload"`
	Seq       uint64         `json:"seq"`
	TraceID   string         `json:"trace_id,omitempty"`
	SpanID    string         `json:"span_id,omitempty"`
}

func toSSEEvent(e runtime.Event) sseEvent {
	return sseEvent{
		Kind:      string(e.Kind),
		SessionID: e.SessionID,
		EvalID:    e.EvalID,
		Time:      e.Time,
		ElapsedMs: e.Elapsed.Milliseconds(),
		Payload:   e.Payload,
		Seq:       e.Seq,
		TraceID:   e.TraceID,
		SpanID:    e.SpanID,
	}
}

// SSEHandler serves an SSE stream of evaluation events for one session.
// It first replays stored events from the EventStore, then subscribes to live
// events via the EventBus. Duplicate events (by sequence number) are skipped.
//
// The handler expects a "session_id" path value (Go 1.22+ ServeMux). The
// optional "after" query parameter (or a Last-Event-ID header) holds the
// last-seen sequence number, and "kinds" restricts the stream to a
// comma-separated list of event kinds.
//
// SSE format:
//
//	id: {seq}
//	event: {kind}
//	data: {json}
//
// A heartbeat comment ": ping\n\n" is sent on every heartbeat tick.
// The stream closes when "session.finished" is sent or the client disconnects.
type SSEHandler struct {
	store     bus.EventStore
	bus       bus.EventBus
	heartbeat time.Duration
}

// Option configures an SSEHandler.
type Option func(*SSEHandler)

// WithHeartbeat overrides HeartbeatInterval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *SSEHandler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewSSEHandler creates a new SSEHandler with the given EventStore and EventBus.
func NewSSEHandler(store bus.EventStore, eb bus.EventBus, opts ...Option) *SSEHandler {
	h := &SSEHandler{
		store:     store,
		bus:       eb,
		heartbeat: HeartbeatInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	afterSeq, err := parseCursor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()

	// Subscribe before replaying so nothing published in between is lost.
	sub := h.bus.Subscribe(sessionID)
	defer sub.Close()

	st := &stream{
		w:       w,
		flusher: flusher,
		kinds:   parseKinds(r.URL.Query().Get("kinds")),
		lastSeq: afterSeq,
	}
	finished, err := h.replayStored(ctx, st, sessionID, afterSeq)
	if err != nil || finished {
		return
	}

	h.streamLive(ctx, st, sub)
}

// parseCursor reads the last-seen sequence number from the "after" query
// parameter, falling back to the Last-Event-ID header sent on reconnect.
func parseCursor(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("after")
	name := "after parameter"
	if raw == "" {
		raw = r.Header.Get("Last-Event-ID")
		name = "Last-Event-ID header"
	}
	if raw == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return seq, nil
}

// parseKinds turns "eval.finished,eval.failed" into a filter set.
// An empty value selects every kind.
func parseKinds(raw string) map[runtime.EventKind]bool {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	kinds := make(map[runtime.EventKind]bool)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds[runtime.EventKind(k)] = true
		}
	}
	return kinds
}

// stream is the write side of one SSE connection.
type stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	kinds   map[runtime.EventKind]bool
	lastSeq uint64
}

// send writes evt unless the kind filter excludes it. It reports finished
// on session.finished, which ends the stream whether or not it was written.
func (s *stream) send(evt runtime.Event) (finished bool, err error) {
	if evt.Seq > s.lastSeq {
		s.lastSeq = evt.Seq
	}
	if s.kinds == nil || s.kinds[evt.Kind] {
		if err := writeSSEEvent(s.w, evt); err != nil {
			return false, err
		}
		s.flusher.Flush()
	}
	return evt.Kind == runtime.EventSessionFinished, nil
}

// replayStored writes stored events to the stream. It reports finished when
// session.finished was among them.
func (h *SSEHandler) replayStored(ctx context.Context, st *stream, sessionID string, afterSeq uint64) (finished bool, err error) {
	if h.store == nil {
		return false, nil
	}
	events, err := h.store.List(ctx, sessionID, afterSeq, 0)
	if err != nil {
		return false, err
	}

	for _, evt := range events {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if finished, err := st.send(evt); err != nil || finished {
			return finished, err
		}
	}

	return false, nil
}

// streamLive streams events from the live subscription, skipping sequence
// numbers already sent during replay.
func (h *SSEHandler) streamLive(ctx context.Context, st *stream, sub bus.Subscription) {
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if evt.Seq <= st.lastSeq {
				continue
			}
			if finished, err := st.send(evt); err != nil || finished {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(st.w, ": ping\n\n"); err != nil {
				return
			}
			st.flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, evt runtime.Event) error {
	data, err := json.Marshal(toSSEEvent(evt))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Kind, data)
	return err
}

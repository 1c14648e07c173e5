package otel_test

import (
	"testing"
	"time"

	fracotel "github.com/petal-labs/fractions/otel"
	"github.com/petal-labs/fractions/runtime"
)

func TestEnrichEmitter_EvalSpanPopulatesTraceFields(t *testing.T) {
	_, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(runtime.Event{Kind: runtime.EventSessionStarted, SessionID: "s-1", Time: now, Payload: map[string]any{"kind": "eval"}})
	h.Handle(runtime.Event{Kind: runtime.EventEvalStarted, SessionID: "s-1", EvalID: "e-1", Time: now})

	expectedSC := h.ActiveEvalSpanContext("e-1")
	if !expectedSC.IsValid() {
		t.Fatal("expected valid eval span context")
	}

	var received runtime.Event
	enriched := fracotel.EnrichEmitter(func(e runtime.Event) { received = e }, h)
	enriched(runtime.Event{Kind: runtime.EventEvalFinished, SessionID: "s-1", EvalID: "e-1", Time: now})

	if received.TraceID != expectedSC.TraceID().String() {
		t.Errorf("TraceID: got %q, want %q", received.TraceID, expectedSC.TraceID().String())
	}
	if received.SpanID != expectedSC.SpanID().String() {
		t.Errorf("SpanID: got %q, want %q", received.SpanID, expectedSC.SpanID().String())
	}
}

func TestEnrichEmitter_EvalEventFallsBackToSessionSpan(t *testing.T) {
	_, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	h.Handle(runtime.Event{Kind: runtime.EventSessionStarted, SessionID: "s-1", Time: time.Now(), Payload: map[string]any{"kind": "repl"}})
	expectedSC := h.ActiveSessionSpanContext("s-1")

	var received runtime.Event
	enriched := fracotel.EnrichEmitter(func(e runtime.Event) { received = e }, h)

	// eval.started is emitted before its span exists.
	enriched(runtime.Event{Kind: runtime.EventEvalStarted, SessionID: "s-1", EvalID: "e-1"})

	if received.SpanID != expectedSC.SpanID().String() {
		t.Errorf("SpanID: got %q, want session span %q", received.SpanID, expectedSC.SpanID().String())
	}
}

func TestEnrichEmitter_PassthroughWhenNoSpanActive(t *testing.T) {
	_, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	var received runtime.Event
	enriched := fracotel.EnrichEmitter(func(e runtime.Event) { received = e }, h)
	enriched(runtime.Event{
		Kind:      runtime.EventEvalFinished,
		SessionID: "s-1",
		EvalID:    "e-1",
		Seq:       7,
		Payload:   map[string]any{"output": "= 1"},
	})

	if received.TraceID != "" || received.SpanID != "" {
		t.Errorf("expected empty trace fields, got %q/%q", received.TraceID, received.SpanID)
	}
	if received.Seq != 7 || received.PayloadString("output") != "= 1" {
		t.Errorf("event fields were not preserved: %+v", received)
	}
}

func TestDecorator_StampsRuntimeEvents(t *testing.T) {
	_, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	var events []runtime.Event
	rt := runtime.NewRuntime(runtime.Options{
		EventHandler: runtime.MultiEventHandler(h.Handle, func(e runtime.Event) {
			events = append(events, e)
		}),
		EventEmitterDecorator: fracotel.Decorator(h),
	})
	s := rt.NewSession(runtime.SessionEval)
	s.Evaluate("1/2 * 3")
	s.Close()

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	// session.started is emitted before the session span exists.
	if events[0].TraceID != "" {
		t.Errorf("session.started should not carry a trace id, got %q", events[0].TraceID)
	}
	for _, e := range events[1:] {
		if e.TraceID == "" {
			t.Errorf("%s: expected trace id", e.Kind)
		}
		if e.TraceID != events[1].TraceID {
			t.Errorf("%s: expected all events in one trace", e.Kind)
		}
	}
	if events[1].SpanID == events[2].SpanID {
		t.Error("eval.finished should carry the eval span, not the session span")
	}
}

package otel_test

import (
	"testing"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	fracotel "github.com/petal-labs/fractions/otel"
	"github.com/petal-labs/fractions/runtime"
)

// newTestTracer returns a tracer backed by an in-memory span exporter.
func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return exporter, tp
}

func findSpan(spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

func hasAttr(span *tracetest.SpanStub, key, value string) bool {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key && attr.Value.Emit() == value {
			return true
		}
	}
	return false
}

func TestTracingHandler_SessionStartedCreatesRootSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(runtime.Event{
		Kind:      runtime.EventSessionStarted,
		SessionID: "s-1",
		Time:      now,
		Payload:   map[string]any{"kind": "repl"},
	})

	if sc := h.ActiveSessionSpanContext("s-1"); !sc.IsValid() {
		t.Fatal("expected valid session span context after session.started")
	}

	h.Handle(runtime.Event{
		Kind:      runtime.EventSessionFinished,
		SessionID: "s-1",
		Time:      now.Add(time.Second),
		Payload:   map[string]any{"kind": "repl", "evaluations": 2, "failures": 1},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := &spans[0]
	if span.Name != "session:repl" {
		t.Errorf("expected span name 'session:repl', got %q", span.Name)
	}
	if !hasAttr(span, "fractions.session_id", "s-1") {
		t.Error("expected fractions.session_id attribute on session span")
	}
	if !hasAttr(span, "fractions.evaluations", "2") {
		t.Error("expected fractions.evaluations attribute on session span")
	}
	if h.ActiveSessionSpanContext("s-1").IsValid() {
		t.Error("session span should be forgotten after session.finished")
	}
}

func TestTracingHandler_EvalStartedCreatesChildSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(runtime.Event{
		Kind:      runtime.EventSessionStarted,
		SessionID: "s-1",
		Time:      now,
		Payload:   map[string]any{"kind": "eval"},
	})
	h.Handle(runtime.Event{
		Kind:      runtime.EventEvalStarted,
		SessionID: "s-1",
		EvalID:    "e-1",
		Time:      now.Add(time.Millisecond),
		Payload:   map[string]any{"expression": "1/2 + 1/4", "operator": "+"},
	})

	sc := h.ActiveEvalSpanContext("e-1")
	if !sc.IsValid() {
		t.Fatal("expected valid eval span context after eval.started")
	}
	sessionSC := h.ActiveSessionSpanContext("s-1")
	if sc.TraceID() != sessionSC.TraceID() {
		t.Error("expected eval span to share trace ID with session span")
	}

	h.Handle(runtime.Event{
		Kind:      runtime.EventEvalFinished,
		SessionID: "s-1",
		EvalID:    "e-1",
		Time:      now.Add(2 * time.Millisecond),
		Elapsed:   time.Millisecond,
		Payload:   map[string]any{"operator": "+", "output": "= 3/4"},
	})
	h.Handle(runtime.Event{
		Kind:      runtime.EventSessionFinished,
		SessionID: "s-1",
		Time:      now.Add(3 * time.Millisecond),
		Payload:   map[string]any{"kind": "eval"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	evalSpan := findSpan(spans, "eval:+")
	if evalSpan == nil {
		t.Fatal("did not find eval:+ span")
	}
	if evalSpan.Parent.SpanID() != sessionSC.SpanID() {
		t.Error("expected eval span parent to be the session span")
	}
	if !hasAttr(evalSpan, "fractions.expression", "1/2 + 1/4") {
		t.Error("expected fractions.expression attribute on eval span")
	}
	if !hasAttr(evalSpan, "fractions.output", "= 3/4") {
		t.Error("expected fractions.output attribute on eval span")
	}
	if evalSpan.Status.Code != otelcodes.Ok {
		t.Errorf("expected Ok status, got %v", evalSpan.Status.Code)
	}
}

func TestTracingHandler_EvalFailedSetsErrorStatus(t *testing.T) {
	exporter, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(runtime.Event{Kind: runtime.EventEvalStarted, SessionID: "s-1", EvalID: "e-1", Time: now})
	h.Handle(runtime.Event{
		Kind:      runtime.EventEvalFailed,
		SessionID: "s-1",
		EvalID:    "e-1",
		Time:      now.Add(time.Millisecond),
		Payload: map[string]any{
			"error":      "Cannot have denominators equal to 0",
			"error_kind": "zero_denominator",
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := &spans[0]
	if span.Name != "eval" {
		t.Errorf("expected span name 'eval' without an operator, got %q", span.Name)
	}
	if span.Status.Code != otelcodes.Error {
		t.Errorf("expected Error status, got %v", span.Status.Code)
	}
	if span.Status.Description != "Cannot have denominators equal to 0" {
		t.Errorf("unexpected status description %q", span.Status.Description)
	}
	if !hasAttr(span, "fractions.error_kind", "zero_denominator") {
		t.Error("expected fractions.error_kind attribute")
	}
	if len(span.Events) == 0 || span.Events[0].Name != "exception" {
		t.Error("expected recorded exception event")
	}
	// Without a session span the eval span is a root span.
	if span.Parent.IsValid() {
		t.Error("expected root span when no session span is active")
	}
}

func TestTracingHandler_IgnoresUnknownEnds(t *testing.T) {
	exporter, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	h.Handle(runtime.Event{Kind: runtime.EventEvalFinished, SessionID: "s-1", EvalID: "missing"})
	h.Handle(runtime.Event{Kind: runtime.EventSessionFinished, SessionID: "missing"})

	if n := len(exporter.GetSpans()); n != 0 {
		t.Fatalf("expected no spans, got %d", n)
	}
}

func TestTracingHandler_FullLifecycle(t *testing.T) {
	exporter, tp := newTestTracer()
	h := fracotel.NewTracingHandler(tp.Tracer("test"))

	rt := runtime.NewRuntime(runtime.Options{EventHandler: h.Handle})
	s := rt.NewSession(runtime.SessionREPL)
	s.Evaluate("1/2 + 1/4")
	s.Evaluate("3 % 4")
	s.Close()

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if findSpan(spans, "session:repl") == nil {
		t.Error("missing session span")
	}
	if findSpan(spans, "eval:+") == nil {
		t.Error("missing eval:+ span")
	}
	failed := findSpan(spans, "eval:%")
	if failed == nil {
		t.Fatal("missing eval:% span")
	}
	if failed.Status.Code != otelcodes.Error {
		t.Errorf("expected Error status on illegal operator, got %v", failed.Status.Code)
	}
}

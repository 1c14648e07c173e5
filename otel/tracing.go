// Package otel provides OpenTelemetry integration for evaluation events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/fractions/runtime"
)

// TracingHandler translates evaluation events into spans: one span per
// session and a child span per evaluation.
type TracingHandler struct {
	tracer trace.Tracer

	mu           sync.RWMutex
	sessionSpans map[string]trace.Span      // sessionID -> span
	sessionCtxs  map[string]context.Context // sessionID -> context (for child spans)
	evalSpans    map[string]trace.Span      // evalID -> span
}

// NewTracingHandler creates a TracingHandler that starts spans on tracer.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:       tracer,
		sessionSpans: make(map[string]trace.Span),
		sessionCtxs:  make(map[string]context.Context),
		evalSpans:    make(map[string]trace.Span),
	}
}

// Handle creates or ends spans for one event.
// It implements runtime.EventHandler semantics.
func (h *TracingHandler) Handle(e runtime.Event) {
	switch e.Kind {
	case runtime.EventSessionStarted:
		h.handleSessionStarted(e)
	case runtime.EventEvalStarted:
		h.handleEvalStarted(e)
	case runtime.EventEvalFinished, runtime.EventEvalFailed:
		h.handleEvalEnded(e)
	case runtime.EventSessionFinished:
		h.handleSessionFinished(e)
	}
}

func (h *TracingHandler) handleSessionStarted(e runtime.Event) {
	ctx, span := h.tracer.Start(context.Background(), "session:"+e.PayloadString("kind"),
		trace.WithAttributes(
			attribute.String("fractions.session_id", e.SessionID),
			attribute.String("fractions.session_kind", e.PayloadString("kind")),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.sessionSpans[e.SessionID] = span
	h.sessionCtxs[e.SessionID] = ctx
	h.mu.Unlock()
}

func (h *TracingHandler) handleEvalStarted(e runtime.Event) {
	h.mu.RLock()
	parentCtx, ok := h.sessionCtxs[e.SessionID]
	h.mu.RUnlock()
	if !ok {
		parentCtx = context.Background()
	}

	name := "eval"
	if op := e.PayloadString("operator"); op != "" {
		name = "eval:" + op
	}
	_, span := h.tracer.Start(parentCtx, name,
		trace.WithAttributes(
			attribute.String("fractions.session_id", e.SessionID),
			attribute.String("fractions.eval_id", e.EvalID),
			attribute.String("fractions.expression", e.PayloadString("expression")),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.evalSpans[e.EvalID] = span
	h.mu.Unlock()
}

func (h *TracingHandler) handleEvalEnded(e runtime.Event) {
	h.mu.Lock()
	span, ok := h.evalSpans[e.EvalID]
	if ok {
		delete(h.evalSpans, e.EvalID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(attribute.String("fractions.output", e.PayloadString("output")))
	if e.Kind == runtime.EventEvalFailed {
		msg := e.PayloadString("error")
		span.SetAttributes(attribute.String("fractions.error_kind", e.PayloadString("error_kind")))
		span.SetStatus(codes.Error, msg)
		span.RecordError(spanError(msg), trace.WithTimestamp(e.Time))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

func (h *TracingHandler) handleSessionFinished(e runtime.Event) {
	h.mu.Lock()
	span, ok := h.sessionSpans[e.SessionID]
	if ok {
		delete(h.sessionSpans, e.SessionID)
		delete(h.sessionCtxs, e.SessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	if n, ok := e.Payload["evaluations"].(int); ok {
		span.SetAttributes(attribute.Int("fractions.evaluations", n))
	}
	if n, ok := e.Payload["failures"].(int); ok {
		span.SetAttributes(attribute.Int("fractions.failures", n))
	}
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(e.Time))
}

// ActiveEvalSpanContext returns the SpanContext of an in-flight evaluation,
// or an empty SpanContext if there is none.
func (h *TracingHandler) ActiveEvalSpanContext(evalID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.evalSpans[evalID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveSessionSpanContext returns the SpanContext of an open session, or an
// empty SpanContext if there is none.
func (h *TracingHandler) ActiveSessionSpanContext(sessionID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.sessionSpans[sessionID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }

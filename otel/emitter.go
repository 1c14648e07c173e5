package otel

import (
	"github.com/petal-labs/fractions/runtime"
)

// EnrichEmitter wraps an EventEmitter so that emitted events carry the trace
// and span ids of the matching active span. Evaluation events look up their
// evaluation span first and fall back to the session span; events with no
// active span pass through unchanged.
func EnrichEmitter(emit runtime.EventEmitter, tracing *TracingHandler) runtime.EventEmitter {
	return func(e runtime.Event) {
		if e.EvalID != "" {
			sc := tracing.ActiveEvalSpanContext(e.EvalID)
			if sc.IsValid() {
				e.TraceID = sc.TraceID().String()
				e.SpanID = sc.SpanID().String()
			}
		}
		if e.TraceID == "" && e.SessionID != "" {
			sc := tracing.ActiveSessionSpanContext(e.SessionID)
			if sc.IsValid() {
				e.TraceID = sc.TraceID().String()
				e.SpanID = sc.SpanID().String()
			}
		}
		emit(e)
	}
}

// Decorator adapts EnrichEmitter to runtime.EventEmitterDecorator.
func Decorator(tracing *TracingHandler) runtime.EventEmitterDecorator {
	return func(next runtime.EventEmitter) runtime.EventEmitter {
		return EnrichEmitter(next, tracing)
	}
}

// Package runtime runs fraction evaluations inside sessions and emits a
// stream of events describing them.
package runtime

import (
	"time"
)

// EventKind identifies the type of event emitted by the runtime.
type EventKind string

const (
	// EventSessionStarted is emitted when a REPL, batch or API session opens.
	EventSessionStarted EventKind = "session.started"

	// EventEvalStarted is emitted before an expression is evaluated.
	EventEvalStarted EventKind = "eval.started"

	// EventEvalFinished is emitted when an expression evaluates to a result.
	EventEvalFinished EventKind = "eval.finished"

	// EventEvalFailed is emitted when an expression evaluates to an error message.
	EventEvalFailed EventKind = "eval.failed"

	// EventSessionFinished is emitted when a session is closed.
	EventSessionFinished EventKind = "session.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured, streamable record of what happened in a session.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// SessionID is the session that produced this event.
	SessionID string

	// EvalID correlates the started and finished events of one evaluation
	// (empty for session-level events).
	EvalID string

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the evaluation or session duration on finishing events.
	Elapsed time.Duration

	// Payload contains event-specific data such as "expression" and "output".
	Payload map[string]any

	// Seq is a monotonic sequence number per session (1-indexed).
	Seq uint64

	// TraceID is the OpenTelemetry trace ID (hex-encoded, empty when OTel inactive).
	TraceID string

	// SpanID is the OpenTelemetry span ID (hex-encoded, empty when OTel inactive).
	SpanID string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, sessionID string) Event {
	return Event{
		Kind:      kind,
		SessionID: sessionID,
		Time:      time.Now(),
		Payload:   make(map[string]any),
	}
}

// WithEval sets the evaluation id on the event.
func (e Event) WithEval(evalID string) Event {
	e.EvalID = evalID
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithTime overrides the event timestamp.
func (e Event) WithTime(t time.Time) Event {
	e.Time = t
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// PayloadString returns a string payload value, or "" when absent.
func (e Event) PayloadString(key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// EventEmitter is a function type for emitting events.
type EventEmitter func(Event)

// EventEmitterDecorator wraps an emitter to add cross-cutting behavior.
// Typical uses include enriching emitted events (for example with trace metadata).
type EventEmitterDecorator func(EventEmitter) EventEmitter

// EventPublisher can publish events to external subscribers.
// This interface is satisfied by bus.EventBus, allowing the runtime
// to distribute events without importing the bus package directly.
type EventPublisher interface {
	Publish(event Event)
}

// EventHandler is a function type for handling events.
// Implementations can log, store, or forward events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

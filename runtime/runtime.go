package runtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/fractions/fraction"
)

// Session kinds recorded on session.started events.
const (
	SessionREPL  = "repl"
	SessionEval  = "eval"
	SessionBatch = "batch"
	SessionHTTP  = "http"
)

// Options configures a Runtime.
type Options struct {
	// Now provides the current time (for testing). If nil, uses time.Now.
	Now func() time.Time

	// EventHandler receives every emitted event.
	EventHandler EventHandler

	// EventEmitterDecorator wraps the internal event emitter.
	// If nil, events are emitted without decoration.
	EventEmitterDecorator EventEmitterDecorator

	// EventBus distributes events to subscribers.
	// If nil, events are only sent to EventHandler.
	EventBus EventPublisher
}

// Runtime evaluates expressions inside sessions. Sessions are tracked by id
// so that independent callers (for example HTTP requests) can share one.
type Runtime struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRuntime creates a Runtime with the given options.
func NewRuntime(opts Options) *Runtime {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runtime{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Outcome is the result of one evaluation.
type Outcome struct {
	SessionID  string
	EvalID     string
	Expression string
	Operator   string
	Result     fraction.Result
	Err        error
	Elapsed    time.Duration
}

// Output renders the outcome the way the console prints it.
func (o Outcome) Output() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Result.String()
}

// Failed reports whether the evaluation produced an error message.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// NewSession opens a session with a generated id.
func (r *Runtime) NewSession(kind string) *Session {
	return r.Session(uuid.New().String(), kind)
}

// Session returns the open session with the given id, opening it when it
// does not exist yet. kind is only used when the session is created.
func (r *Runtime) Session(id, kind string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := r.openSession(id, kind)
	r.sessions[id] = s
	return s
}

// Lookup returns an open session without creating one.
func (r *Runtime) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Evaluate runs a single expression in a throwaway session.
func (r *Runtime) Evaluate(kind, line string) Outcome {
	s := r.NewSession(kind)
	defer s.Close()
	return s.Evaluate(line)
}

func (r *Runtime) openSession(id, kind string) *Session {
	s := &Session{
		id:      id,
		kind:    kind,
		rt:      r,
		started: r.opts.Now(),
	}
	emit := func(e Event) {
		e.Seq = s.seq.Add(1)
		if r.opts.EventBus != nil {
			r.opts.EventBus.Publish(e)
		}
		if r.opts.EventHandler != nil {
			r.opts.EventHandler(e)
		}
	}
	if r.opts.EventEmitterDecorator != nil {
		emit = r.opts.EventEmitterDecorator(emit)
	}
	s.emit = emit

	emit(NewEvent(EventSessionStarted, id).
		WithTime(s.started).
		WithPayload("kind", kind))
	return s
}

func (r *Runtime) forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Session is a sequence of evaluations sharing one event stream. Event
// sequence numbers start at 1 for every session, including one reopened
// under an id that was used before.
type Session struct {
	id      string
	kind    string
	rt      *Runtime
	emit    EventEmitter
	started time.Time
	seq     atomic.Uint64

	mu          sync.Mutex
	evaluations int
	failures    int
	closed      bool
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Evaluate resolves one expression line and emits eval.started followed by
// eval.finished or eval.failed.
func (s *Session) Evaluate(line string) Outcome {
	now := s.rt.opts.Now
	evalID := uuid.New().String()

	out := Outcome{
		SessionID:  s.id,
		EvalID:     evalID,
		Expression: line,
	}
	expr, splitErr := fraction.SplitExpression(line)
	if splitErr == nil {
		out.Operator = expr.Operator
	}

	start := now()
	s.emit(NewEvent(EventEvalStarted, s.id).
		WithEval(evalID).
		WithTime(start).
		WithPayload("expression", line).
		WithPayload("operator", out.Operator))

	if splitErr != nil {
		out.Err = splitErr
	} else {
		out.Result, out.Err = expr.Resolve()
	}
	end := now()
	out.Elapsed = end.Sub(start)

	s.mu.Lock()
	s.evaluations++
	if out.Err != nil {
		s.failures++
	}
	s.mu.Unlock()

	e := NewEvent(EventEvalFinished, s.id).
		WithEval(evalID).
		WithTime(end).
		WithElapsed(out.Elapsed).
		WithPayload("expression", line).
		WithPayload("operator", out.Operator).
		WithPayload("output", out.Output())
	if out.Err != nil {
		e.Kind = EventEvalFailed
		e = e.WithPayload("error", out.Err.Error()).
			WithPayload("error_kind", fraction.KindOf(out.Err))
	} else {
		e = e.WithPayload("result", out.Result.Value())
	}
	s.emit(e)

	return out
}

// Close emits session.finished with the session's totals. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	evaluations, failures := s.evaluations, s.failures
	s.mu.Unlock()

	s.rt.forget(s.id)

	end := s.rt.opts.Now()
	s.emit(NewEvent(EventSessionFinished, s.id).
		WithTime(end).
		WithElapsed(end.Sub(s.started)).
		WithPayload("kind", s.kind).
		WithPayload("evaluations", evaluations).
		WithPayload("failures", failures))
}

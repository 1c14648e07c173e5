package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/petal-labs/fractions/runtime"
)

// Forgetter is implemented by stores that can drop all events of a session.
type Forgetter interface {
	Forget(sessionID string)
}

// StoreSubscriberOption configures a StoreSubscriber.
type StoreSubscriberOption func(*StoreSubscriber)

// WithFinishedTTL forgets a session's events ttl after its session.finished
// event, when the store implements Forgetter.
func WithFinishedTTL(ttl time.Duration) StoreSubscriberOption {
	return func(s *StoreSubscriber) {
		s.ttl = ttl
	}
}

// StoreSubscriber writes events to an EventStore.
// It implements EventHandler semantics for use as a bus subscriber handler.
type StoreSubscriber struct {
	store  EventStore
	logger *slog.Logger
	ttl    time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// NewStoreSubscriber creates a new StoreSubscriber.
func NewStoreSubscriber(store EventStore, logger *slog.Logger, opts ...StoreSubscriberOption) *StoreSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &StoreSubscriber{
		store:   store,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle persists a single event to the store. A session.started event
// starts a fresh log for its id: events left from an earlier session with
// the same id are forgotten first, since sequence numbers restart at 1.
func (s *StoreSubscriber) Handle(event runtime.Event) {
	if event.Kind == runtime.EventSessionStarted {
		s.cancelForget(event.SessionID)
		if f, ok := s.store.(Forgetter); ok {
			f.Forget(event.SessionID)
		}
	}

	if err := s.store.Append(context.Background(), event); err != nil {
		s.logger.Error("failed to persist event",
			"session_id", event.SessionID,
			"kind", event.Kind,
			"eval_id", event.EvalID,
			"seq", event.Seq,
			"error", err,
		)
	}

	if event.Kind == runtime.EventSessionFinished {
		s.scheduleForget(event.SessionID)
	}
}

// Close stops pending forget timers. Events already stored are kept.
func (s *StoreSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

func (s *StoreSubscriber) scheduleForget(sessionID string) {
	f, ok := s.store.(Forgetter)
	if !ok || s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.pending[sessionID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.ttl, func() {
		s.mu.Lock()
		current := s.pending[sessionID] == timer
		if current {
			delete(s.pending, sessionID)
		}
		s.mu.Unlock()
		if current {
			f.Forget(sessionID)
			s.logger.Debug("forgot session events", "session_id", sessionID)
		}
	})
	s.pending[sessionID] = timer
}

func (s *StoreSubscriber) cancelForget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[sessionID]; ok {
		t.Stop()
		delete(s.pending, sessionID)
	}
}

package bus

import (
	"context"
	"sync"

	"github.com/petal-labs/fractions/runtime"
)

// MemStoreConfig configures an in-memory event store.
type MemStoreConfig struct {
	// MaxPerSession caps the events kept per session; the oldest are
	// discarded first (0 = unbounded).
	MaxPerSession int
}

// MemEventStore is a thread-safe in-memory event store used to replay a
// session's events to late SSE subscribers.
type MemEventStore struct {
	mu     sync.RWMutex
	events map[string][]runtime.Event // sessionID -> events
	max    int
}

// NewMemEventStore creates an unbounded in-memory event store.
func NewMemEventStore() *MemEventStore {
	return NewMemEventStoreWithConfig(MemStoreConfig{})
}

// NewMemEventStoreWithConfig creates an in-memory event store with the given limits.
func NewMemEventStoreWithConfig(cfg MemStoreConfig) *MemEventStore {
	return &MemEventStore{
		events: make(map[string][]runtime.Event),
		max:    cfg.MaxPerSession,
	}
}

func (s *MemEventStore) Append(_ context.Context, event runtime.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := append(s.events[event.SessionID], event)
	if s.max > 0 && len(events) > s.max {
		events = append([]runtime.Event(nil), events[len(events)-s.max:]...)
	}
	s.events[event.SessionID] = events
	return nil
}

func (s *MemEventStore) List(_ context.Context, sessionID string, afterSeq uint64, limit int) ([]runtime.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []runtime.Event
	for _, e := range s.events[sessionID] {
		if afterSeq > 0 && e.Seq <= afterSeq {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *MemEventStore) LatestSeq(_ context.Context, sessionID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var maxSeq uint64
	for _, e := range s.events[sessionID] {
		if e.Seq > maxSeq {
			maxSeq = e.Seq
		}
	}
	return maxSeq, nil
}

// Forget drops every stored event of a session.
func (s *MemEventStore) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, sessionID)
}

// Compile-time interface check.
var _ EventStore = (*MemEventStore)(nil)

package bus

import (
	"context"

	"github.com/petal-labs/fractions/runtime"
)

// EventStore persists events for replay.
type EventStore interface {
	// Append stores an event.
	Append(ctx context.Context, event runtime.Event) error

	// List returns events for a session in publish order.
	// afterSeq: return events with Seq > afterSeq (0 means all)
	// limit: max events to return (0 means no limit)
	List(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]runtime.Event, error)

	// LatestSeq returns the highest Seq for a session (0 if no events).
	LatestSeq(ctx context.Context, sessionID string) (uint64, error)
}

// Package bus fans evaluation events out to interested parties: the SSE
// stream of a session, the history recorder and the event store used for
// replay.
package bus

import "github.com/petal-labs/fractions/runtime"

// EventBus distributes events to subscribers.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(event runtime.Event)

	// Subscribe registers a subscriber for a single session.
	// Returns a Subscription that must be closed when done.
	Subscribe(sessionID string) Subscription

	// SubscribeAll registers a subscriber that receives events from every session.
	// Returns a Subscription that must be closed when done.
	SubscribeAll() Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription receives events.
type Subscription interface {
	// Events returns a channel of events for this subscription.
	Events() <-chan runtime.Event

	// Close unsubscribes and releases resources.
	Close() error
}

// Drain feeds every event of sub to handle until the subscription is closed.
// It is meant to run in its own goroutine.
func Drain(sub Subscription, handle runtime.EventHandler) {
	for e := range sub.Events() {
		handle(e)
	}
}

// Package pubsub is the generic broadcast primitive the hive builds its
// live views on top of: structured log tailing (`beehive logs --follow`)
// and the bee-liveness watch (`beehive status --watch`) both subscribe to
// a typed Broker rather than polling the store directly from a UI loop.
package pubsub

import (
	"context"
	"time"
)

// EventType classifies what changed about the payload being broadcast.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event is one broadcast: a typed payload stamped with what kind of change
// it represents and when it happened.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out a channel of events scoped to ctx's lifetime.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher broadcasts a typed payload to every current subscriber.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

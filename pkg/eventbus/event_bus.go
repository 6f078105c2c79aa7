// Package eventbus provides publish/subscribe plumbing for engine lifecycle
// events and inbound business events.
package eventbus

import (
	"context"

	"github.com/funnelworks/journeyd/pkg/events"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	GetType() events.EventType
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event any) error

// BusinessEventHandler processes one inbound business event.
type BusinessEventHandler func(ctx context.Context, event *events.BusinessEvent) error

// EventBus publishes and subscribes engine lifecycle events.
type EventBus interface {
	GenerateID() string
	Publish(ctx context.Context, key string, event Event) error
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	Close() error
}

// BusinessEventBus consumes inbound business events from event producers
// (payment webhooks, tracking pixels) that publish to the inbound topic.
type BusinessEventBus interface {
	PublishBusinessEvent(ctx context.Context, event *events.BusinessEvent) error
	HandleBusinessEvents(handler BusinessEventHandler) error
	Subscribe(ctx context.Context) error
	Close() error
}

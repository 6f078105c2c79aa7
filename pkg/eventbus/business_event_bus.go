package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/funnelworks/journeyd/pkg/events"
)

// WatermillBusinessEventBus carries inbound business events on their own
// topic, decoupling event producers from the engine's lifecycle events.
type WatermillBusinessEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handler    BusinessEventHandler
}

func NewWatermillBusinessEventBus(pub message.Publisher, sub message.Subscriber) *WatermillBusinessEventBus {
	return &WatermillBusinessEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (eb *WatermillBusinessEventBus) PublishBusinessEvent(ctx context.Context, event *events.BusinessEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, event.EventID)

	return eb.publisher.Publish(events.BusinessEventTopic, msg)
}

func (eb *WatermillBusinessEventBus) HandleBusinessEvents(handler BusinessEventHandler) error {
	eb.handler = handler

	return nil
}

func (eb *WatermillBusinessEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.BusinessEventTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			if eb.handler == nil {
				msg.Ack()

				continue
			}

			event := &events.BusinessEvent{}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				msg.Nack()

				continue
			}

			err = eb.handler(ctx, event)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillBusinessEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

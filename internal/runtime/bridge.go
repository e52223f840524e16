package runtime

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/eventbind/binding"
	"github.com/drblury/eventbind/internal/runtime/codec"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	idspkg "github.com/drblury/eventbind/internal/runtime/ids"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
)

// NewMessage encodes event into a Watermill message. Protobuf messages use
// the binary wire format, everything else JSON. The event type and content
// type headers are always set; a correlation id is added when md has none.
func NewMessage(event any, md metadatapkg.Metadata) (*message.Message, error) {
	if event == nil {
		return nil, binding.ErrEventRequired
	}

	c := codec.For(event)
	payload, err := c.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", event, err)
	}

	msg := message.NewMessage(idspkg.NewID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(md)
	msg.Metadata.Set(metadatapkg.EventTypeKey, codec.Name(reflect.TypeOf(event)))
	msg.Metadata.Set(metadatapkg.ContentTypeKey, c.ContentType())
	if msg.Metadata.Get(metadatapkg.CorrelationIDKey) == "" {
		msg.Metadata.Set(metadatapkg.CorrelationIDKey, idspkg.NewID())
	}
	return msg, nil
}

// Publish encodes event and publishes it to topic.
func Publish(ctx context.Context, publisher message.Publisher, topic string, event any, md metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewMessage(event, md)
	if err != nil {
		return err
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}

// Bridge posts events received from a topic to a dispatcher.
type Bridge struct {
	dispatcher *Dispatcher
	events     *codec.Registry
	logger     loggingpkg.ServiceLogger
}

// NewBridge returns a bridge that decodes messages with the types in events.
func NewBridge(dispatcher *Dispatcher, events *codec.Registry, logger loggingpkg.ServiceLogger) (*Bridge, error) {
	if dispatcher == nil {
		return nil, errspkg.ErrDispatcherRequired
	}
	if events == nil {
		events = codec.NewRegistry()
	}
	return &Bridge{
		dispatcher: dispatcher,
		events:     events,
		logger:     loggingpkg.OrDiscard(logger),
	}, nil
}

// Events returns the registry the bridge decodes with.
func (b *Bridge) Events() *codec.Registry {
	return b.events
}

// HandleMessage decodes msg and posts the event. Messages that cannot be
// decoded are logged and acknowledged, since redelivery would fail the same
// way. Dispatch errors are returned so the router can retry or nack.
func (b *Bridge) HandleMessage(msg *message.Message) error {
	md := metadatapkg.FromWatermill(msg.Metadata)
	event, err := b.events.Decode(md.EventType(), md.ContentType(), msg.Payload)
	if err != nil {
		b.logger.Error("Dropping undecodable message", err, loggingpkg.LogFields{
			"message_uuid":   msg.UUID,
			"event_type":     md.EventType(),
			"correlation_id": md.CorrelationID(),
		})
		return nil
	}

	b.logger.Trace("Posting bridged event", loggingpkg.LogFields{
		"message_uuid": msg.UUID,
		"event_type":   md.EventType(),
	})
	return b.dispatcher.Post(msg.Context(), event)
}

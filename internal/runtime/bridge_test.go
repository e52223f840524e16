package runtime

import (
	"context"
	"reflect"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/drblury/eventbind/binding"
	"github.com/drblury/eventbind/internal/runtime/codec"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
)

func TestNewMessageJSON(t *testing.T) {
	msg, err := NewMessage(tick{N: 1}, metadatapkg.New(metadatapkg.CorrelationIDKey, "corr-1"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"N":1}`, string(msg.Payload))
	assert.Equal(t, codec.Name(reflect.TypeFor[tick]()), msg.Metadata.Get(metadatapkg.EventTypeKey))
	assert.Equal(t, metadatapkg.ContentTypeJSON, msg.Metadata.Get(metadatapkg.ContentTypeKey))
	assert.Equal(t, "corr-1", msg.Metadata.Get(metadatapkg.CorrelationIDKey))
	assert.NotEmpty(t, msg.UUID)

	_, err = NewMessage(nil, nil)
	assert.ErrorIs(t, err, binding.ErrEventRequired)
}

func TestNewMessageProto(t *testing.T) {
	msg, err := NewMessage(wrapperspb.String("hello"), nil)
	require.NoError(t, err)

	assert.Equal(t, "google.protobuf.StringValue", msg.Metadata.Get(metadatapkg.EventTypeKey))
	assert.Equal(t, metadatapkg.ContentTypeProto, msg.Metadata.Get(metadatapkg.ContentTypeKey))
	assert.NotEmpty(t, msg.Metadata.Get(metadatapkg.CorrelationIDKey))

	events := codec.NewRegistry()
	require.NoError(t, events.Register(&wrapperspb.StringValue{}))
	decoded, err := events.Decode(msg.Metadata.Get(metadatapkg.EventTypeKey), metadatapkg.ContentTypeProto, msg.Payload)
	require.NoError(t, err)
	assert.True(t, proto.Equal(wrapperspb.String("hello"), decoded.(proto.Message)))
}

func TestPublishValidatesArguments(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, Publish(ctx, nil, "topic", tick{}, nil), errspkg.ErrPublisherRequired)
	assert.ErrorIs(t, Publish(ctx, &testPublisher{}, "", tick{}, nil), errspkg.ErrTopicRequired)
	assert.ErrorIs(t, Publish(ctx, &testPublisher{}, "topic", nil, nil), binding.ErrEventRequired)

	pub := &testPublisher{}
	require.NoError(t, Publish(ctx, pub, "topic", tick{N: 2}, nil))
	require.Len(t, pub.Messages(), 1)
	assert.Equal(t, []string{"topic"}, pub.topics)
}

func TestNewBridgeRequiresDispatcher(t *testing.T) {
	_, err := NewBridge(nil, nil, nil)
	assert.ErrorIs(t, err, errspkg.ErrDispatcherRequired)

	b, err := NewBridge(NewDispatcher(nil), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, b.Events())
}

func newTestBridge(t *testing.T, finder binding.Finder, listener any, prototypes ...any) *Bridge {
	t.Helper()
	d := NewDispatcher(finder)
	require.NoError(t, d.Register(listener))
	events := codec.NewRegistry()
	require.NoError(t, events.Register(prototypes...))
	b, err := NewBridge(d, events, newTestLogger())
	require.NoError(t, err)
	return b
}

func TestBridgeHandleMessagePostsEvent(t *testing.T) {
	r := &recorder{}
	b := newTestBridge(t, recorderTable(), r, tick{})

	msg, err := NewMessage(tick{N: 5}, nil)
	require.NoError(t, err)
	require.NoError(t, b.HandleMessage(msg))
	assert.Equal(t, []int{5}, r.Ticks())
}

func TestBridgeHandleMessageAcksUndecodable(t *testing.T) {
	r := &recorder{}
	b := newTestBridge(t, recorderTable(), r, tick{})

	unknown := message.NewMessage("1", []byte(`{}`))
	unknown.Metadata.Set(metadatapkg.EventTypeKey, "nobody.Knows")
	assert.NoError(t, b.HandleMessage(unknown))

	garbage, err := NewMessage(tick{N: 1}, nil)
	require.NoError(t, err)
	garbage.Payload = []byte("not json")
	assert.NoError(t, b.HandleMessage(garbage))

	assert.NoError(t, b.HandleMessage(message.NewMessage("2", nil)))
	assert.Empty(t, r.Ticks())
}

func TestBridgeHandleMessageReturnsDispatchErrors(t *testing.T) {
	b := newTestBridge(t, counterTable(), &counter{}, stopped{})

	msg, err := NewMessage(stopped{}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, b.HandleMessage(msg), errStopped)
}

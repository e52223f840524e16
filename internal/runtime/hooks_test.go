package runtime

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
)

func TestDeliveryHooksMerge(t *testing.T) {
	var calls []string
	first := DeliveryHooks{
		OnStart: func(DeliveryContext) { calls = append(calls, "first.start") },
		OnError: func(DeliveryContext, error) { calls = append(calls, "first.error") },
	}
	second := DeliveryHooks{
		OnStart: func(DeliveryContext) { calls = append(calls, "second.start") },
		OnDone:  func(DeliveryContext) { calls = append(calls, "second.done") },
	}

	merged := first.Merge(second)
	merged.OnStart(DeliveryContext{})
	merged.OnDone(DeliveryContext{})
	merged.OnError(DeliveryContext{}, errors.New("boom"))

	assert.Equal(t, []string{"first.start", "second.start", "second.done", "first.error"}, calls)
	assert.Nil(t, DeliveryHooks{}.Merge(DeliveryHooks{}).OnDone)
}

func TestDeliveryHooksMiddleware(t *testing.T) {
	var started, done []DeliveryContext
	var failed []error
	reg := DeliveryHooksMiddleware(DeliveryHooks{
		OnStart: func(dc DeliveryContext) { started = append(started, dc) },
		OnDone:  func(dc DeliveryContext) { done = append(done, dc) },
		OnError: func(_ DeliveryContext, err error) { failed = append(failed, err) },
	})
	require.Equal(t, "delivery_hooks", reg.Name)

	msg := message.NewMessage("uuid-1", nil)
	msg.Metadata.Set(metadatapkg.EventTypeKey, "ticks.Tick")
	msg.Metadata.Set(metadatapkg.CorrelationIDKey, "corr-1")

	_, err := reg.Middleware(func(*message.Message) ([]*message.Message, error) { return nil, nil })(msg)
	require.NoError(t, err)
	require.Len(t, started, 1)
	require.Len(t, done, 1)
	assert.Equal(t, "uuid-1", done[0].MessageUUID)
	assert.Equal(t, "ticks.Tick", done[0].EventType)
	assert.Equal(t, "corr-1", done[0].CorrelationID)
	assert.False(t, done[0].StartedAt.IsZero())

	boom := errors.New("boom")
	_, err = reg.Middleware(func(*message.Message) ([]*message.Message, error) { return nil, boom })(msg)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []error{boom}, failed)
	assert.Len(t, done, 1)
}

func TestLoggingHooks(t *testing.T) {
	hooks := LoggingHooks(nil)
	require.NotNil(t, hooks.OnDone)
	require.NotNil(t, hooks.OnError)
	assert.Nil(t, hooks.OnStart)

	hooks = LoggingHooks(newTestLogger())
	hooks.OnDone(DeliveryContext{EventType: "ticks.Tick"})
	hooks.OnError(DeliveryContext{EventType: "ticks.Tick"}, errors.New("boom"))
}

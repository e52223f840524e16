package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/eventbind/transport"
)

type mockConfig struct{}

func (mockConfig) GetPubSubSystem() string       { return TransportName }
func (mockConfig) GetKafkaBrokers() []string     { return nil }
func (mockConfig) GetKafkaConsumerGroup() string { return "" }
func (mockConfig) GetRabbitMQURL() string        { return "" }
func (mockConfig) GetNATSURL() string            { return "" }

func TestRegister(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, Capabilities(), caps)
	assert.True(t, caps.SupportsReliableDelivery())
	assert.False(t, caps.Durable)
}

func TestBuildConfiguresSharedChannel(t *testing.T) {
	original := Factory
	defer func() { Factory = original }()

	var got gochannel.Config
	Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
		got = cfg
		return original(cfg, logger)
	}

	tr, err := Build(context.Background(), mockConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, int64(OutputBuffer), got.OutputChannelBuffer)
	assert.True(t, got.BlockPublishUntilSubscriberAck)
	assert.Same(t, tr.Publisher, tr.Subscriber)
}

func TestRoundTrip(t *testing.T) {
	tr, err := transport.Build(context.Background(), mockConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := tr.Subscriber.Subscribe(ctx, "ticks")
	require.NoError(t, err)

	go func() {
		_ = tr.Publisher.Publish("ticks", message.NewMessage(watermill.NewUUID(), []byte(`{"n":1}`)))
	}()

	select {
	case msg := <-messages:
		assert.Equal(t, `{"n":1}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

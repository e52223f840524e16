package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConfig struct {
	pubSubSystem string
}

func (m *mockConfig) GetPubSubSystem() string       { return m.pubSubSystem }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetNATSURL() string            { return "" }

type mockPublisher struct{ closed int }

func (m *mockPublisher) Publish(string, ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                              { m.closed++; return nil }

type mockSubscriber struct{ closeErr error }

func (m *mockSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (m *mockSubscriber) Close() error { return m.closeErr }

type mockPubSub struct {
	mockPublisher
	mockSubscriber
}

func (m *mockPubSub) Close() error { return m.mockPublisher.Close() }

func mockBuilder(context.Context, Config, watermill.LoggerAdapter) (Transport, error) {
	return Transport{Publisher: &mockPublisher{}, Subscriber: &mockSubscriber{}}, nil
}

func TestRegistryRegisterAndBuild(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Names())

	reg.Register("Memory", mockBuilder)
	assert.True(t, reg.Has("memory"))
	assert.True(t, reg.Has(" MEMORY "))
	assert.Equal(t, []string{"memory"}, reg.Names())

	tr, err := reg.Build(context.Background(), &mockConfig{pubSubSystem: "memory"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
}

func TestRegistryBuildErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", mockBuilder)
	reg.Register("a", func(context.Context, Config, watermill.LoggerAdapter) (Transport, error) {
		return Transport{}, errors.New("dial failed")
	})

	_, err := reg.Build(context.Background(), nil, watermill.NopLogger{})
	assert.ErrorIs(t, err, ErrConfigRequired)

	_, err = reg.Build(context.Background(), &mockConfig{pubSubSystem: "missing"}, watermill.NopLogger{})
	assert.ErrorIs(t, err, ErrUnknownTransport)
	assert.Contains(t, err.Error(), "registered: a, b")

	_, err = reg.Build(context.Background(), &mockConfig{pubSubSystem: "a"}, watermill.NopLogger{})
	assert.EqualError(t, err, "build a transport: dial failed")
}

func TestRegistryCapabilities(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterWithCapabilities("kafka", mockBuilder, KafkaCapabilities)

	assert.Equal(t, KafkaCapabilities, reg.GetCapabilities("Kafka"))
	assert.Equal(t, Capabilities{Name: "other"}, reg.GetCapabilities("other"))

	reg.Register("plain", mockBuilder)
	assert.Equal(t, Capabilities{Name: "plain"}, reg.GetCapabilities("plain"))
}

func TestCapabilitiesFlags(t *testing.T) {
	assert.True(t, ChannelCapabilities.SupportsReliableDelivery())
	assert.True(t, RabbitMQCapabilities.SupportsReliableDelivery())
	assert.False(t, KafkaCapabilities.SupportsReliableDelivery())
	assert.False(t, NATSCapabilities.SupportsRetry())
	assert.True(t, KafkaCapabilities.Durable)
}

func TestTransportClose(t *testing.T) {
	pub := &mockPublisher{}
	sub := &mockSubscriber{closeErr: errors.New("boom")}
	err := Transport{Publisher: pub, Subscriber: sub}.Close()
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, pub.closed)

	shared := &mockPubSub{}
	require.NoError(t, Transport{Publisher: shared, Subscriber: shared}.Close())
	assert.Equal(t, 1, shared.closed)

	assert.NoError(t, Transport{}.Close())
}

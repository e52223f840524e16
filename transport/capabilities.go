package transport

// Capabilities describes the delivery guarantees of a backend.
type Capabilities struct {
	Name string

	// SupportsOrdering reports that events published on one topic are
	// delivered in publish order.
	SupportsOrdering bool

	// SupportsTracing reports that metadata, and with it the correlation id,
	// survives the round trip.
	SupportsTracing bool

	SupportsAck  bool
	SupportsNack bool

	// Durable reports that events outlive the publishing process.
	Durable bool

	// MaxMessageSize is the largest payload in bytes, 0 when unknown.
	MaxMessageSize int64
}

// SupportsReliableDelivery reports at-least-once delivery (ack and nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// SupportsRetry reports whether a failed delivery can be redelivered by the
// backend, which the retry middleware relies on after its own attempts.
func (c Capabilities) SupportsRetry() bool {
	return c.SupportsNack
}

var (
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsAck:      true,
		Durable:          true,
		MaxMessageSize:   1048576,
	}

	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsOrdering: true,
		SupportsTracing:  true,
		SupportsAck:      true,
		SupportsNack:     true,
		Durable:          true,
	}

	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1048576,
	}
)

// GetCapabilities returns the capabilities registered for name on the
// default registry.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}

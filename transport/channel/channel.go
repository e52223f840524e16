// Package channel provides the in-process transport. Publisher and
// subscriber share one gochannel, so events only reach subscribers of the
// same process. It is the default pubsub_system and what tests run against.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/eventbind/transport"
)

const TransportName = "channel"

// OutputBuffer is the per-subscription buffer of the shared gochannel.
const OutputBuffer = 64

// Factory creates the shared gochannel. Tests replace it to inspect the
// configuration.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	Register()
}

// Register adds the channel transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new gochannel transport. cfg is not consulted.
func Build(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pubSub := Factory(gochannel.Config{
		OutputChannelBuffer:            OutputBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
	return transport.Transport{
		Publisher:  pubSub,
		Subscriber: pubSub,
	}, nil
}

func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

// Package transport selects the bridge transport for a runtime
// configuration.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/eventbind/internal/runtime/config"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	"github.com/drblury/eventbind/transport"

	_ "github.com/drblury/eventbind/transport/transports"
)

// Transport is the publisher and subscriber pair a Factory produces.
type Transport = transport.Transport

// Factory abstracts how the service obtains its transport.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	return f(ctx, conf, logger)
}

// DefaultFactory builds transports from the default registry, which holds
// every built-in backend.
func DefaultFactory() Factory {
	return RegistryFactory(transport.DefaultRegistry)
}

// RegistryFactory builds transports from reg.
func RegistryFactory(reg *transport.Registry) Factory {
	return FactoryFunc(func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
		if conf == nil {
			return Transport{}, errspkg.ErrConfigRequired
		}
		return reg.Build(ctx, conf, logger)
	})
}

// Capabilities reports what the transport selected by conf guarantees.
func Capabilities(conf *config.Config) transport.Capabilities {
	if conf == nil {
		return transport.Capabilities{}
	}
	return transport.GetCapabilities(conf.PubSubSystem)
}

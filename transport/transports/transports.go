// Package transports registers every built-in bridge transport with the
// default registry. Import it for side effects.
package transports

import (
	_ "github.com/drblury/eventbind/transport/channel"
	_ "github.com/drblury/eventbind/transport/kafka"
	_ "github.com/drblury/eventbind/transport/nats"
	_ "github.com/drblury/eventbind/transport/rabbitmq"
)

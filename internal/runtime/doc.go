/*
Package runtime delivers events to listeners resolved through generated
binding tables, locally and across a Watermill transport.

# Architecture Overview

A Dispatcher owns the handlers of registered listeners. It asks a
binding.Finder (normally the Finder() of a generated eventbind_gen.go) for
the handlers of each listener and posts events to them synchronously, in
registration order. Events nobody subscribes to are re-posted once as a
DeadEvent.

The Service puts a Watermill router in front of a dispatcher. Events
published with Service.Publish are encoded (protobuf wire format for
proto.Message values, JSON otherwise) and consumed from the configured topic
by a Bridge, which decodes them with a codec.Registry and posts them to the
dispatcher.

# Package Structure

## Dispatch (dispatcher.go, metrics.go)

  - Dispatcher: Register, Unregister, Post
  - DispatchMetrics: Prometheus counters plus an in-memory snapshot

## Bridge (bridge.go, service.go)

  - NewMessage and Publish encode events into Watermill messages
  - Bridge decodes messages and posts them
  - Service wires transport, router, middleware and dispatcher

## Middleware (middleware.go, hooks.go)

  - CorrelationID: Ensures message traceability
  - LogMessages: Debug logging of message metadata
  - Tracer: OpenTelemetry spans around message handling
  - Metrics: Watermill Prometheus router metrics
  - Retry: Exponential backoff, skipping binding failures
  - Recoverer: Panic recovery
  - DeliveryHooks: Callbacks around every bridged message

# Sub-packages

  - codec/: JSON and protobuf codecs and the event type registry
  - config/: Viper backed configuration with validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities
  - transport/: Transport selection for a configuration

# Usage Example

	conf, err := config.Load("eventbind.yaml")
	if err != nil {
		return err
	}

	svc, err := runtime.NewService(conf, logger, ctx, runtime.ServiceDependencies{
		Finder: bindings.Finder(),
		Events: []any{orders.Created{}},
	})
	if err != nil {
		return err
	}
	if err := svc.Register(&billing.Listener{}); err != nil {
		return err
	}

	go svc.Start(ctx)
	<-svc.Running()
	err = svc.Publish(ctx, orders.Created{ID: "42"}, nil)
*/
package runtime

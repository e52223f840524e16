// Package eventbind binds annotated subscriber methods to an event
// dispatcher without runtime method discovery. The eventbind-gen command
// scans Go sources for methods marked with an //eventbind:subscribe
// directive and writes an eventbind_gen.go file holding a binding.Table for
// the package. Depending on the selected strategy the table either resolves
// each method by name when a listener is registered (deferred) or calls it
// through a compiled function value (direct).
//
// A Dispatcher consumes that table: Register stores one handler per
// subscriber method, Post delivers an event to every handler of its type or
// of an interface it implements, and Unregister invalidates the handlers so a
// delivery already in flight cannot reach a listener that was removed.
//
// Service places a Watermill router in front of a dispatcher so events can
// cross process boundaries. It reads the target transport (channel, kafka,
// rabbitmq or nats) from Config, registers the default middleware chain for
// correlation IDs, logging, tracing, metrics, retries and panic recovery, and
// posts every decoded message to the dispatcher.
//
// # Quick start
//
//	//go:generate eventbind-gen --dir . --out . --package billing
//
//	type Listener struct{ store *Store }
//
//	//eventbind:subscribe
//	func (l *Listener) OnOrderCreated(e orders.Created) { ... }
//
//	d := eventbind.NewDispatcher(billing.Finder())
//	if err := d.Register(&Listener{}); err != nil {
//		return err
//	}
//	err := d.Post(ctx, orders.Created{ID: "42"})
//
// # Transports
//
//   - channel: In-memory Go channels, the default and what tests use
//   - kafka: Consumer groups over Sarama
//   - rabbitmq: Durable AMQP queues
//   - nats: Core NATS subscriptions with queue groups
//
// # Middleware
//
// The default middleware chain includes correlation ID injection, message
// logging, OpenTelemetry tracing, optional Prometheus router metrics, retries
// with exponential backoff and panic recovery. Retries skip failures caused by
// a broken binding or an invalidated handler.
package eventbind

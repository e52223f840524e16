// Package binding is the runtime half of eventbind. It defines the Handler
// contract a dispatcher relies on, the two handler variants, and the Table
// that maps listener types to the handlers bound to them.
//
// # Handlers
//
// A Handler wraps exactly one (listener, method) pair. Two handlers are equal
// when their Key values are equal, and the Key is computed once from identity
// fields only: the listener's address plus either the resolved method (for
// deferred handlers) or the thunk pointer (for direct handlers). The
// listener's own equality is never consulted, so a dispatcher can use Key as a
// map key to refuse duplicate registrations of the same method on the same
// object while still keeping two instances of one type apart.
//
// Handlers start valid. Invalidate flips them to invalid exactly once; from
// then on HandleEvent fails with *InvalidHandlerError.
//
// # Strategies
//
// Deferred handlers resolve the subscriber method through reflect the first
// time a (type, name, event type) triple is looked up and reuse the cached
// result afterwards:
//
//	binding.Deferred(reflect.TypeFor[*ticks.Counter](), "OnTick", reflect.TypeFor[ticks.TickEvent]())
//
// Direct handlers call a thunk built from a method expression, so no lookup
// happens at delivery time:
//
//	var counterOnTick = binding.Direct("ticks.Counter.OnTick", (*ticks.Counter).OnTick)
//
// eventbind-gen emits one of the two forms for every subscriber method and
// wires them into a Table through TableBuilder.
package binding

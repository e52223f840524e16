package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/eventbind/binding"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
)

const tracerName = "github.com/drblury/eventbind"

// DeadEvent is posted in place of an event that no handler subscribes to.
type DeadEvent struct {
	Source any
	Event  any
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFallbackFinder consults f for listener types the primary finder does
// not bind. Fallbacks are tried in the order they were added.
func WithFallbackFinder(f binding.Finder) DispatcherOption {
	return func(d *Dispatcher) {
		if f != nil {
			d.finders = append(d.finders, f)
		}
	}
}

func WithDispatcherLogger(logger loggingpkg.ServiceLogger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = loggingpkg.OrDiscard(logger) }
}

// WithDispatchMetrics records deliveries on m.
func WithDispatchMetrics(m *DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTracerProvider traces Post calls with a tracer from tp instead of the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) DispatcherOption {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer(tracerName)
		}
	}
}

// Dispatcher stores the handlers of registered listeners and delivers posted
// events to them. Delivery happens on the caller's goroutine, in the order
// handlers were registered.
type Dispatcher struct {
	finders []binding.Finder
	logger  loggingpkg.ServiceLogger
	metrics *DispatchMetrics
	tracer  trace.Tracer

	mu       sync.RWMutex
	handlers map[reflect.Type]*binding.HandlerSet
	order    []reflect.Type
}

// NewDispatcher returns a dispatcher that resolves listeners through finder,
// typically the Finder() of a generated bindings package.
func NewDispatcher(finder binding.Finder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger:   loggingpkg.Discard(),
		tracer:   otel.Tracer(tracerName),
		handlers: make(map[reflect.Type]*binding.HandlerSet),
	}
	if finder != nil {
		d.finders = append(d.finders, finder)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register stores the handlers of listener. Registering the same listener
// twice fails with ErrAlreadyRegistered.
func (d *Dispatcher) Register(listener any) error {
	finder, found, err := d.find(listener)
	if err != nil {
		return err
	}
	producers, err := finder.FindProducers(listener)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: %T", errspkg.ErrNoHandlers, listener)
	}

	events := sortedEventTypes(found)
	counts := make(map[reflect.Type]int, len(events))
	added := 0

	d.mu.Lock()
	for _, event := range events {
		stored, ok := d.handlers[event]
		if !ok {
			stored = binding.NewHandlerSet()
			d.handlers[event] = stored
			d.order = append(d.order, event)
		}
		for _, h := range found[event].Handlers() {
			if stored.Add(h) {
				added++
			}
		}
		counts[event] = stored.Len()
	}
	d.mu.Unlock()

	if added == 0 {
		return fmt.Errorf("%w: %T", errspkg.ErrAlreadyRegistered, listener)
	}
	d.recordHandlerCounts(counts)
	d.logger.Debug("Registered listener", loggingpkg.LogFields{
		"listener":    fmt.Sprintf("%T", listener),
		"handlers":    added,
		"event_types": len(events),
		"producers":   len(producers),
	})
	return nil
}

// Unregister removes and invalidates the handlers of listener. A handler
// already being delivered to may still run once; later deliveries skip it.
func (d *Dispatcher) Unregister(listener any) error {
	_, found, err := d.find(listener)
	if err != nil {
		return err
	}

	counts := make(map[reflect.Type]int, len(found))
	removed := 0

	d.mu.Lock()
	for event, set := range found {
		stored, ok := d.handlers[event]
		if !ok {
			continue
		}
		for _, h := range set.Handlers() {
			if old, ok := stored.Remove(h); ok {
				old.Invalidate()
				removed++
			}
		}
		counts[event] = stored.Len()
	}
	d.mu.Unlock()

	if removed == 0 {
		return fmt.Errorf("%w: %T", errspkg.ErrNotRegistered, listener)
	}
	d.recordHandlerCounts(counts)
	d.logger.Debug("Unregistered listener", loggingpkg.LogFields{
		"listener": fmt.Sprintf("%T", listener),
		"handlers": removed,
	})
	return nil
}

// Post delivers event to every valid handler subscribed to its concrete type
// or to an interface type it implements. Handler errors are joined; panics
// raised by a subscriber propagate to the caller. When nobody subscribes the
// event is posted again wrapped in a DeadEvent.
func (d *Dispatcher) Post(ctx context.Context, event any) error {
	if event == nil {
		return binding.ErrEventRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}

	eventType := reflect.TypeOf(event)
	name := binding.TypeKey(eventType)
	handlers := d.matching(eventType)

	ctx, span := d.tracer.Start(ctx, "eventbind.Post",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("eventbind.event_type", name),
			attribute.Int("eventbind.handlers", len(handlers)),
		),
	)
	defer span.End()

	if len(handlers) == 0 {
		if _, dead := event.(DeadEvent); dead {
			return nil
		}
		if d.metrics != nil {
			d.metrics.RecordDeadEvent(name)
		}
		d.logger.Debug("No handlers for event", loggingpkg.LogFields{"event_type": name})
		return d.Post(ctx, DeadEvent{Source: d, Event: event})
	}

	var errs []error
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !h.IsValid() {
			d.recordDelivery(name, OutcomeSkipped, 0)
			continue
		}

		start := time.Now()
		err := h.HandleEvent(event)
		elapsed := time.Since(start)
		switch {
		case errors.Is(err, binding.ErrInvalidHandler):
			d.recordDelivery(name, OutcomeSkipped, elapsed)
		case err != nil:
			d.recordDelivery(name, OutcomeFailed, elapsed)
			d.logger.Error("Handler failed", err, loggingpkg.LogFields{
				"handler":    h.String(),
				"event_type": name,
			})
			errs = append(errs, err)
		default:
			d.recordDelivery(name, OutcomeDelivered, elapsed)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Handlers returns the handlers registered for exactly eventType.
func (d *Dispatcher) Handlers(eventType reflect.Type) []binding.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set, ok := d.handlers[eventType]
	if !ok {
		return nil
	}
	return set.Handlers()
}

// EventTypes lists the event types that have ever had a handler, in the
// order they were first registered.
func (d *Dispatcher) EventTypes() []reflect.Type {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]reflect.Type, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Dispatcher) find(listener any) (binding.Finder, map[reflect.Type]*binding.HandlerSet, error) {
	if listener == nil {
		return nil, nil, binding.ErrListenerRequired
	}
	var notBound error
	for _, f := range d.finders {
		found, err := f.FindHandlers(listener)
		if err == nil {
			return f, found, nil
		}
		if !errors.Is(err, binding.ErrTypeNotBound) {
			return nil, nil, err
		}
		if notBound == nil {
			notBound = err
		}
	}
	if notBound == nil {
		notBound = &binding.TypeNotBoundError{Type: reflect.TypeOf(listener)}
	}
	return nil, nil, notBound
}

func (d *Dispatcher) matching(eventType reflect.Type) []binding.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []binding.Handler
	for _, t := range d.order {
		if t != eventType && (t.Kind() != reflect.Interface || !eventType.Implements(t)) {
			continue
		}
		out = append(out, d.handlers[t].Handlers()...)
	}
	return out
}

func (d *Dispatcher) recordDelivery(eventType, outcome string, elapsed time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordDelivery(eventType, outcome, elapsed)
	}
}

func (d *Dispatcher) recordHandlerCounts(counts map[reflect.Type]int) {
	if d.metrics == nil {
		return
	}
	for event, n := range counts {
		d.metrics.SetHandlers(binding.TypeKey(event), n)
	}
}

func sortedEventTypes(found map[reflect.Type]*binding.HandlerSet) []reflect.Type {
	events := make([]reflect.Type, 0, len(found))
	for event := range found {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		return binding.TypeKey(events[i]) < binding.TypeKey(events[j])
	})
	return events
}

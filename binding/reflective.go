package binding

import (
	"fmt"
	"reflect"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// Method is a subscriber method resolved through reflection.
type Method struct {
	owner        reflect.Type
	name         string
	event        reflect.Type
	fn           reflect.Value
	returnsError bool
}

func (m Method) Owner() reflect.Type     { return m.owner }
func (m Method) Name() string            { return m.name }
func (m Method) EventType() reflect.Type { return m.event }

func (m Method) String() string {
	return fmt.Sprintf("(%s).%s(%s)", typeName(m.owner), m.name, typeName(m.event))
}

type lookupKey struct {
	owner reflect.Type
	name  string
	event reflect.Type
}

// methodCache holds every method resolved by LookupMethod for the lifetime of
// the process. Values are immutable Method structs.
var methodCache sync.Map

// LookupMethod resolves the exported method name on owner that accepts a
// single parameter of type event. Successful lookups are cached, so the
// reflective search runs once per (owner, name, event) triple.
func LookupMethod(owner reflect.Type, name string, event reflect.Type) (Method, error) {
	if owner == nil || event == nil {
		return Method{}, fmt.Errorf("%w: owner and event types are required", ErrMethodNotFound)
	}
	key := lookupKey{owner: owner, name: name, event: event}
	if cached, ok := methodCache.Load(key); ok {
		return cached.(Method), nil
	}

	m, err := resolveMethod(owner, name, event)
	if err != nil {
		return Method{}, err
	}
	actual, _ := methodCache.LoadOrStore(key, m)
	return actual.(Method), nil
}

func resolveMethod(owner reflect.Type, name string, event reflect.Type) (Method, error) {
	if owner.Kind() == reflect.Interface {
		return Method{}, fmt.Errorf("%w: %s is an interface", ErrMethodNotFound, owner)
	}
	rm, ok := owner.MethodByName(name)
	if !ok {
		return Method{}, fmt.Errorf("%w: %s has no exported method %s", ErrMethodNotFound, owner, name)
	}

	// rm.Type carries the receiver as its first parameter.
	ft := rm.Type
	if ft.NumIn() != 2 || ft.IsVariadic() {
		return Method{}, fmt.Errorf("%w: (%s).%s must accept exactly one parameter", ErrSignatureMismatch, owner, name)
	}
	if ft.In(1) != event {
		return Method{}, fmt.Errorf("%w: (%s).%s accepts %s, not %s", ErrSignatureMismatch, owner, name, ft.In(1), event)
	}
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	default:
		return Method{}, fmt.Errorf("%w: (%s).%s may only return error", ErrSignatureMismatch, owner, name)
	}

	return Method{
		owner:        owner,
		name:         name,
		event:        event,
		fn:           rm.Func,
		returnsError: ft.NumOut() == 1,
	}, nil
}

// ReflectiveHandler invokes a cached Method on its listener.
type ReflectiveHandler struct {
	validity

	method   Method
	listener reflect.Value
	key      Key
	hash     uint64
}

var _ Handler = (*ReflectiveHandler)(nil)

// NewReflectiveHandler wraps m for listener, which must be a non-nil pointer
// of the method's owner type.
func NewReflectiveHandler(listener any, m Method) (*ReflectiveHandler, error) {
	if !m.fn.IsValid() {
		return nil, fmt.Errorf("%w: method has not been resolved", ErrMethodNotFound)
	}
	if err := checkListener(listener, m.owner); err != nil {
		return nil, err
	}

	key := Key{owner: m.owner, method: m.name, event: m.event, listener: listener}
	return &ReflectiveHandler{
		method:   m,
		listener: reflect.ValueOf(listener),
		key:      key,
		hash:     key.hash(),
	}, nil
}

// HandleEvent calls the wrapped method with event as its only argument.
func (h *ReflectiveHandler) HandleEvent(event any) error {
	if !h.IsValid() {
		return &InvalidHandlerError{Handler: h.String()}
	}

	arg, err := eventArgument(event, h.method.event)
	if err != nil {
		return &InternalBindingError{Handler: h.String(), EventType: reflect.TypeOf(event), Err: err}
	}

	out := h.method.fn.Call([]reflect.Value{h.listener, arg})
	if h.method.returnsError && !out[0].IsNil() {
		return &DeliveryError{
			Handler:   h.String(),
			EventType: reflect.TypeOf(event),
			Err:       out[0].Interface().(error),
		}
	}
	return nil
}

func (h *ReflectiveHandler) Method() Method           { return h.method }
func (h *ReflectiveHandler) Key() Key                 { return h.key }
func (h *ReflectiveHandler) Hash() uint64             { return h.hash }
func (h *ReflectiveHandler) Equal(other Handler) bool { return equalHandlers(h, other) }

func (h *ReflectiveHandler) String() string {
	return "[EventHandler " + h.method.String() + "]"
}

func eventArgument(event any, want reflect.Type) (reflect.Value, error) {
	if event == nil {
		return reflect.Value{}, ErrEventRequired
	}
	v := reflect.ValueOf(event)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, fmt.Errorf("%w: got %T, want %s", ErrEventMismatch, event, want)
	}
	return v, nil
}

// deferredBinder is a comparable value so that TableBuilder can detect the
// same method being bound twice.
type deferredBinder struct {
	owner reflect.Type
	name  string
	event reflect.Type
}

// Deferred describes a subscriber method that is resolved with LookupMethod
// when the first handler for it is built.
func Deferred(owner reflect.Type, name string, event reflect.Type) Binder {
	return deferredBinder{owner: owner, name: name, event: event}
}

func (d deferredBinder) Owner() reflect.Type     { return d.owner }
func (d deferredBinder) EventType() reflect.Type { return d.event }

func (d deferredBinder) Bind(listener any) (Handler, error) {
	m, err := LookupMethod(d.owner, d.name, d.event)
	if err != nil {
		return nil, err
	}
	h, err := NewReflectiveHandler(listener, m)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (d deferredBinder) String() string {
	return fmt.Sprintf("(%s).%s(%s)", typeName(d.owner), d.name, typeName(d.event))
}

package binding

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidHandler     = errors.New("eventbind: handler has been invalidated")
	ErrInternalBinding    = errors.New("eventbind: internal binding failure")
	ErrTypeNotBound       = errors.New("eventbind: type is not bound")
	ErrInvalidBinding     = errors.New("eventbind: invalid binding")
	ErrDuplicateBinding   = errors.New("eventbind: duplicate binding")
	ErrMethodNotFound     = errors.New("eventbind: subscriber method not found")
	ErrSignatureMismatch  = errors.New("eventbind: subscriber method signature mismatch")
	ErrThunkRequired      = errors.New("eventbind: thunk is required")
	ErrListenerRequired   = errors.New("eventbind: listener is required")
	ErrListenerNotPointer = errors.New("eventbind: listener must be a non-nil pointer")
	ErrListenerMismatch   = errors.New("eventbind: listener type does not match binding")
	ErrListenerZeroSize   = errors.New("eventbind: listener type has zero size")
	ErrEventRequired      = errors.New("eventbind: event is required")
	ErrEventMismatch      = errors.New("eventbind: event type does not match binding")
)

// InvalidHandlerError is returned by HandleEvent once the handler has been
// invalidated. Receiving it means the dispatcher delivered to a handler whose
// listener was already unregistered.
type InvalidHandlerError struct {
	Handler string
}

func (e *InvalidHandlerError) Error() string {
	return e.Handler + " has been invalidated and can no longer handle events"
}

// Is allows errors.Is to match InvalidHandlerError with ErrInvalidHandler.
func (e *InvalidHandlerError) Is(target error) bool {
	return target == ErrInvalidHandler
}

// InternalBindingError reports that the bound call could not be performed,
// for example because the event does not have the subscribed type.
type InternalBindingError struct {
	Handler   string
	EventType reflect.Type
	Err       error
}

func (e *InternalBindingError) Error() string {
	return fmt.Sprintf("eventbind: could not invoke %s with event %s: %v", e.Handler, typeName(e.EventType), e.Err)
}

func (e *InternalBindingError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match InternalBindingError with ErrInternalBinding.
func (e *InternalBindingError) Is(target error) bool {
	return target == ErrInternalBinding
}

// DeliveryError wraps an error returned by the subscriber method itself.
type DeliveryError struct {
	Handler   string
	EventType reflect.Type
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("eventbind: could not dispatch event %s to %s: %v", typeName(e.EventType), e.Handler, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// TypeNotBoundError is returned by a Table lookup for a listener type that
// has no generated binding.
type TypeNotBoundError struct {
	Type reflect.Type
}

func (e *TypeNotBoundError) Error() string {
	return fmt.Sprintf("eventbind: type %s is not bound", typeName(e.Type))
}

// Is allows errors.Is to match TypeNotBoundError with ErrTypeNotBound.
func (e *TypeNotBoundError) Is(target error) bool {
	return target == ErrTypeNotBound
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

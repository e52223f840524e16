package binding

import (
	"fmt"
	"reflect"
)

// Thunk is the precompiled call path for one subscriber method. Generated
// code declares one package-level Thunk per method; its pointer identity is
// what tells two direct handlers for different methods apart.
type Thunk struct {
	name  string
	owner reflect.Type
	event reflect.Type
	call  func(listener, event any) error
}

// Direct builds the thunk for a method expression such as
// (*ticks.Counter).OnTick. The returned thunk asserts the listener to L and
// the event to E and calls the method; there is no method lookup.
func Direct[L, E any](name string, call func(L, E)) *Thunk {
	if call == nil {
		panic("eventbind: direct call is required")
	}
	owner := reflect.TypeFor[L]()
	event := reflect.TypeFor[E]()
	return &Thunk{
		name:  name,
		owner: owner,
		event: event,
		call: func(listener, ev any) error {
			l, ok := listener.(L)
			if !ok {
				return fmt.Errorf("%w: got %T, want %s", ErrListenerMismatch, listener, owner)
			}
			if ev == nil {
				return ErrEventRequired
			}
			e, ok := ev.(E)
			if !ok {
				return fmt.Errorf("%w: got %T, want %s", ErrEventMismatch, ev, event)
			}
			call(l, e)
			return nil
		},
	}
}

func (t *Thunk) Name() string            { return t.name }
func (t *Thunk) Owner() reflect.Type     { return t.owner }
func (t *Thunk) EventType() reflect.Type { return t.event }
func (t *Thunk) String() string          { return t.name }

// Bind creates a DirectHandler of t for listener.
func (t *Thunk) Bind(listener any) (Handler, error) {
	h, err := NewDirectHandler(t, listener)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// DirectHandler invokes a Thunk on its listener.
type DirectHandler struct {
	validity

	thunk    *Thunk
	listener any
	key      Key
	hash     uint64
}

var _ Handler = (*DirectHandler)(nil)

// NewDirectHandler wraps t for listener, which must be a non-nil pointer of
// the thunk's owner type.
func NewDirectHandler(t *Thunk, listener any) (*DirectHandler, error) {
	if t == nil {
		return nil, ErrThunkRequired
	}
	if err := checkListener(listener, t.owner); err != nil {
		return nil, err
	}

	key := Key{thunk: t, listener: listener}
	return &DirectHandler{
		thunk:    t,
		listener: listener,
		key:      key,
		hash:     key.hash(),
	}, nil
}

// HandleEvent calls the thunk with the wrapped listener and event.
func (h *DirectHandler) HandleEvent(event any) error {
	if !h.IsValid() {
		return &InvalidHandlerError{Handler: h.String()}
	}
	if err := h.thunk.call(h.listener, event); err != nil {
		return &InternalBindingError{Handler: h.String(), EventType: reflect.TypeOf(event), Err: err}
	}
	return nil
}

func (h *DirectHandler) Thunk() *Thunk            { return h.thunk }
func (h *DirectHandler) Key() Key                 { return h.key }
func (h *DirectHandler) Hash() uint64             { return h.hash }
func (h *DirectHandler) Equal(other Handler) bool { return equalHandlers(h, other) }

func (h *DirectHandler) String() string {
	return "[EventHandler " + h.thunk.name + "]"
}

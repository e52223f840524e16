package binding

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Handler delivers events to one subscriber method on one listener.
type Handler interface {
	// IsValid reports whether the handler still accepts events.
	IsValid() bool

	// Invalidate makes the handler refuse further events. It is idempotent
	// and is called by the dispatcher when the listener unregisters.
	Invalidate()

	// HandleEvent delivers event to the wrapped method. Panics raised by the
	// method propagate unchanged.
	HandleEvent(event any) error

	// Key returns the identity of the binding.
	Key() Key

	// Hash returns a hash of Key computed when the handler was built.
	Hash() uint64

	// Equal reports whether other wraps the same method on the same listener.
	Equal(other Handler) bool

	String() string
}

// Key identifies a binding. Keys are comparable; two handlers for the same
// method on the same listener have equal keys even if built separately.
type Key struct {
	owner    reflect.Type
	method   string
	event    reflect.Type
	thunk    *Thunk
	listener any
}

// Listener returns the listener the binding belongs to.
func (k Key) Listener() any {
	return k.listener
}

func (k Key) hash() uint64 {
	d := xxhash.New()
	if k.thunk != nil {
		_, _ = d.WriteString(k.thunk.name)
		writeAddress(d, reflect.ValueOf(k.thunk).Pointer())
	} else {
		_, _ = d.WriteString(typeName(k.owner))
		_, _ = d.WriteString(k.method)
		_, _ = d.WriteString(typeName(k.event))
	}
	writeAddress(d, reflect.ValueOf(k.listener).Pointer())
	return d.Sum64()
}

func writeAddress(d *xxhash.Digest, addr uintptr) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(addr))
	_, _ = d.Write(buf[:])
}

// validity holds the one-way valid -> invalid transition shared by both
// handler variants. Delivery and unregistration run on different goroutines.
type validity struct {
	invalid atomic.Bool
}

func (v *validity) IsValid() bool {
	return !v.invalid.Load()
}

func (v *validity) Invalidate() {
	v.invalid.Store(true)
}

// checkListener verifies that listener is a non-nil pointer of type owner.
// Handler identity is the listener's address, and distinct zero-size
// variables may share one, so pointers to zero-size types are rejected.
func checkListener(listener any, owner reflect.Type) error {
	if listener == nil {
		return ErrListenerRequired
	}
	v := reflect.ValueOf(listener)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrListenerNotPointer, listener)
	}
	if owner != nil && v.Type() != owner {
		return fmt.Errorf("%w: got %T, want %s", ErrListenerMismatch, listener, owner)
	}
	if v.Type().Elem().Size() == 0 {
		return fmt.Errorf("%w: %T cannot be told apart from other instances", ErrListenerZeroSize, listener)
	}
	return nil
}

func equalHandlers(h Handler, other Handler) bool {
	if other == nil {
		return false
	}
	return h.Key() == other.Key()
}

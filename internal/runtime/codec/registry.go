package codec

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/drblury/eventbind/binding"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
)

var protoMessageType = reflect.TypeFor[proto.Message]()

// Name returns the header name of an event type: the full protobuf name for
// protobuf messages, the binding type key otherwise.
func Name(t reflect.Type) string {
	if t != nil && t.Kind() == reflect.Pointer && t.Implements(protoMessageType) {
		msg := reflect.New(t.Elem()).Interface().(proto.Message)
		return string(msg.ProtoReflect().Descriptor().FullName())
	}
	return binding.TypeKey(t)
}

// Registry maps header event names to Go types. It is safe for concurrent
// use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]reflect.Type)}
}

// Register adds the types of the given prototype values.
func (r *Registry) Register(prototypes ...any) error {
	for _, p := range prototypes {
		if p == nil {
			return errspkg.ErrPrototypeRequired
		}
		r.RegisterType(reflect.TypeOf(p))
	}
	return nil
}

// RegisterType adds t and returns its header name.
func (r *Registry) RegisterType(t reflect.Type) string {
	name := Name(t)
	r.mu.Lock()
	r.byName[name] = t
	r.mu.Unlock()
	return name
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode builds a value of the type registered under name from data. Pointer
// types decode into a fresh value and return the pointer; other types return
// the value itself.
func (r *Registry) Decode(name, contentType string, data []byte) (any, error) {
	if name == "" {
		return nil, errspkg.ErrEventTypeRequired
	}
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrUnknownEventType, name)
	}
	c, err := ForContentType(contentType)
	if err != nil {
		return nil, err
	}

	if t.Kind() == reflect.Pointer {
		target := reflect.New(t.Elem())
		if err := c.Unmarshal(data, target.Interface()); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return target.Interface(), nil
	}
	target := reflect.New(t)
	if err := c.Unmarshal(data, target.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return target.Elem().Interface(), nil
}

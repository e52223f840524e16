package binding

import (
	"errors"
	"fmt"
	"reflect"
)

// Binder creates handlers for one subscriber method. *Thunk and the value
// returned by Deferred implement it. Implementations must be comparable.
type Binder interface {
	Owner() reflect.Type
	EventType() reflect.Type
	Bind(listener any) (Handler, error)
	String() string
}

// Producer is the slot for producer methods. Tables never return any; the
// interface exists so dispatchers have a uniform registration path.
type Producer interface {
	IsValid() bool
	Invalidate()
	ProduceEvent() (any, error)
}

// Finder is the lookup surface a dispatcher consumes at registration time.
type Finder interface {
	FindHandlers(listener any) (map[reflect.Type]*HandlerSet, error)
	FindProducers(listener any) (map[reflect.Type]Producer, error)
}

type tableEntry struct {
	owner   reflect.Type
	events  []reflect.Type
	binders map[reflect.Type][]Binder
}

// Table maps listener types to the binders of their subscriber methods. A
// Table is immutable once built and safe for concurrent use.
type Table struct {
	entries map[reflect.Type]*tableEntry
	order   []reflect.Type
}

var _ Finder = (*Table)(nil)

// FindHandlers builds the handlers bound to listener, grouped by event type.
// Listener types without a binding yield *TypeNotBoundError.
func (t *Table) FindHandlers(listener any) (map[reflect.Type]*HandlerSet, error) {
	entry, err := t.lookup(listener)
	if err != nil {
		return nil, err
	}

	result := make(map[reflect.Type]*HandlerSet, len(entry.events))
	for _, event := range entry.events {
		set := NewHandlerSet()
		for _, b := range entry.binders[event] {
			h, err := b.Bind(listener)
			if err != nil {
				return nil, fmt.Errorf("bind %s: %w", b, err)
			}
			set.Add(h)
		}
		result[event] = set
	}
	return result, nil
}

// FindProducers returns an empty map for bound listener types.
func (t *Table) FindProducers(listener any) (map[reflect.Type]Producer, error) {
	if _, err := t.lookup(listener); err != nil {
		return nil, err
	}
	return map[reflect.Type]Producer{}, nil
}

// Has reports whether typ has a binding.
func (t *Table) Has(typ reflect.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.entries[typ]
	return ok
}

// Types lists the bound listener types in the order they were bound.
func (t *Table) Types() []reflect.Type {
	if t == nil {
		return nil
	}
	out := make([]reflect.Type, len(t.order))
	copy(out, t.order)
	return out
}

// EventTypes lists the event types typ subscribes to.
func (t *Table) EventTypes(typ reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	entry, ok := t.entries[typ]
	if !ok {
		return nil
	}
	out := make([]reflect.Type, len(entry.events))
	copy(out, entry.events)
	return out
}

// Binders returns the binders of typ for event, in declaration order.
func (t *Table) Binders(typ, event reflect.Type) []Binder {
	if t == nil {
		return nil
	}
	entry, ok := t.entries[typ]
	if !ok {
		return nil
	}
	out := make([]Binder, len(entry.binders[event]))
	copy(out, entry.binders[event])
	return out
}

func (t *Table) lookup(listener any) (*tableEntry, error) {
	if listener == nil {
		return nil, ErrListenerRequired
	}
	typ := reflect.TypeOf(listener)
	if t != nil {
		if entry, ok := t.entries[typ]; ok {
			return entry, nil
		}
	}
	return nil, &TypeNotBoundError{Type: typ}
}

// TableBuilder collects bindings and produces a Table. Errors are gathered
// and reported together by Build.
type TableBuilder struct {
	entries []*tableEntry
	index   map[reflect.Type]struct{}
	errs    []error
}

func NewTableBuilder() *TableBuilder {
	return &TableBuilder{index: make(map[reflect.Type]struct{})}
}

// Bind registers the binders of owner, which must be a pointer type.
func (b *TableBuilder) Bind(owner reflect.Type, binders ...Binder) *TableBuilder {
	if owner == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: owner type is required", ErrInvalidBinding))
		return b
	}
	if owner.Kind() != reflect.Pointer {
		b.errs = append(b.errs, fmt.Errorf("%w: owner %s must be a pointer type", ErrInvalidBinding, owner))
		return b
	}
	if _, dup := b.index[owner]; dup {
		b.errs = append(b.errs, fmt.Errorf("%w: %s is bound twice", ErrDuplicateBinding, owner))
		return b
	}

	entry := &tableEntry{owner: owner, binders: make(map[reflect.Type][]Binder)}
	seen := make(map[Binder]struct{}, len(binders))
	for i, binder := range binders {
		if binder == nil {
			b.errs = append(b.errs, fmt.Errorf("%w: binder %d of %s is nil", ErrInvalidBinding, i, owner))
			continue
		}
		if binder.Owner() != owner {
			b.errs = append(b.errs, fmt.Errorf("%w: %s belongs to %s, not %s", ErrInvalidBinding, binder, typeName(binder.Owner()), owner))
			continue
		}
		if binder.EventType() == nil {
			b.errs = append(b.errs, fmt.Errorf("%w: %s has no event type", ErrInvalidBinding, binder))
			continue
		}
		if !reflect.ValueOf(binder).Comparable() {
			b.errs = append(b.errs, fmt.Errorf("%w: binder %d of %s is not comparable (%T)", ErrInvalidBinding, i, owner, binder))
			continue
		}
		if _, dup := seen[binder]; dup {
			b.errs = append(b.errs, fmt.Errorf("%w: %s is bound twice", ErrDuplicateBinding, binder))
			continue
		}
		seen[binder] = struct{}{}

		event := binder.EventType()
		if _, ok := entry.binders[event]; !ok {
			entry.events = append(entry.events, event)
		}
		entry.binders[event] = append(entry.binders[event], binder)
	}

	b.index[owner] = struct{}{}
	b.entries = append(b.entries, entry)
	return b
}

// Build returns the Table or every error recorded by Bind.
func (b *TableBuilder) Build() (*Table, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	t := &Table{
		entries: make(map[reflect.Type]*tableEntry, len(b.entries)),
		order:   make([]reflect.Type, 0, len(b.entries)),
	}
	for _, entry := range b.entries {
		t.entries[entry.owner] = entry
		t.order = append(t.order, entry.owner)
	}
	return t, nil
}

// MustBuild is Build for package-level variables in generated code.
func MustBuild(b *TableBuilder) *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

package emitter

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/drblury/eventbind/binding"
	"github.com/drblury/eventbind/internal/compiler"
	"github.com/drblury/eventbind/internal/model"
)

// TypeResolver maps type keys to runtime types. *binding.TypeRegistry
// implements it.
type TypeResolver interface {
	Resolve(key string) (reflect.Type, error)
}

// Assemble builds the binding table for result in process. Only the
// deferred strategy can be assembled this way; direct thunks are method
// expressions that exist only in generated source.
//
// Every method is looked up once up front so a mismatch between the
// scanned source and the resolved types fails here rather than at
// registration.
func Assemble(result *compiler.Result, resolver TypeResolver) (*binding.Table, error) {
	if result == nil {
		return nil, ErrResultRequired
	}
	if result.Strategy != model.StrategyDeferred {
		return nil, fmt.Errorf("%w: strategy %s", ErrDirectNeedsSource, result.Strategy)
	}
	if resolver == nil {
		return nil, errors.New("eventbind: type resolver is required")
	}

	builder := binding.NewTableBuilder()
	for _, tb := range result.Types {
		owner, err := resolver.Resolve(tb.OwnerKey())
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", tb.Type.Key, err)
		}

		var binders []binding.Binder
		for _, g := range tb.Groups {
			event, err := resolver.Resolve(g.EventType.Key)
			if err != nil {
				return nil, fmt.Errorf("resolve event type of %s: %w", tb.Type.Key, err)
			}
			for _, m := range g.Methods {
				if _, err := binding.LookupMethod(owner, m.Name, event); err != nil {
					return nil, fmt.Errorf("%s: %w", m.QualifiedName(), err)
				}
				binders = append(binders, binding.Deferred(owner, m.Name, event))
			}
		}
		builder.Bind(owner, binders...)
	}
	return builder.Build()
}

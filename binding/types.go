package binding

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Type keys are the canonical spelling of a Go type shared by the source
// scanner and the runtime: named types are written {import/path}.Name,
// predeclared types by name (byte and rune by their underlying names), the
// empty interface as any, and composite types with Go syntax around those.

// QualifiedKey returns the key of the named type name declared in pkgPath.
func QualifiedKey(pkgPath, name string) string {
	if pkgPath == "" {
		return name
	}
	return "{" + pkgPath + "}." + name
}

// TypeKey returns the canonical key of t.
func TypeKey(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Name() != "" {
		return QualifiedKey(t.PkgPath(), t.Name())
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + TypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + TypeKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + TypeKey(t.Elem())
	case reflect.Map:
		return "map[" + TypeKey(t.Key()) + "]" + TypeKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + TypeKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + TypeKey(t.Elem())
		default:
			return "chan " + TypeKey(t.Elem())
		}
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
	}
	return t.String()
}

var predeclared = map[string]reflect.Type{
	"any":        reflect.TypeFor[any](),
	"error":      reflect.TypeFor[error](),
	"bool":       reflect.TypeFor[bool](),
	"string":     reflect.TypeFor[string](),
	"int":        reflect.TypeFor[int](),
	"int8":       reflect.TypeFor[int8](),
	"int16":      reflect.TypeFor[int16](),
	"int32":      reflect.TypeFor[int32](),
	"int64":      reflect.TypeFor[int64](),
	"uint":       reflect.TypeFor[uint](),
	"uint8":      reflect.TypeFor[uint8](),
	"uint16":     reflect.TypeFor[uint16](),
	"uint32":     reflect.TypeFor[uint32](),
	"uint64":     reflect.TypeFor[uint64](),
	"uintptr":    reflect.TypeFor[uintptr](),
	"float32":    reflect.TypeFor[float32](),
	"float64":    reflect.TypeFor[float64](),
	"complex64":  reflect.TypeFor[complex64](),
	"complex128": reflect.TypeFor[complex128](),
}

// TypeRegistry resolves type keys back to reflect types. Named types must
// be registered; predeclared types and pointer, slice, array and map
// compositions of resolvable types are derived.
type TypeRegistry struct {
	types map[string]reflect.Type
}

func NewTypeRegistry(types ...reflect.Type) *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]reflect.Type)}
	r.Register(types...)
	return r
}

// Register adds types to the registry. Registering a pointer type also
// registers the type it points to.
func (r *TypeRegistry) Register(types ...reflect.Type) {
	for _, t := range types {
		for t != nil {
			r.types[TypeKey(t)] = t
			if t.Kind() != reflect.Pointer {
				break
			}
			t = t.Elem()
		}
	}
}

// Resolve returns the type spelled by key.
func (r *TypeRegistry) Resolve(key string) (reflect.Type, error) {
	if t, ok := r.types[key]; ok {
		return t, nil
	}
	if t, ok := predeclared[key]; ok {
		return t, nil
	}

	switch {
	case strings.HasPrefix(key, "*"):
		elem, err := r.Resolve(key[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case strings.HasPrefix(key, "[]"):
		elem, err := r.Resolve(key[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case strings.HasPrefix(key, "map["):
		end := closingBracket(key, len("map"))
		if end < 0 {
			break
		}
		k, err := r.Resolve(key[len("map["):end])
		if err != nil {
			return nil, err
		}
		v, err := r.Resolve(key[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(k, v), nil
	case strings.HasPrefix(key, "["):
		end := strings.IndexByte(key, ']')
		if end < 0 {
			break
		}
		n, err := strconv.Atoi(key[1:end])
		if err != nil {
			break
		}
		elem, err := r.Resolve(key[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil
	}
	return nil, fmt.Errorf("%w: unknown type %s", ErrTypeNotBound, key)
}

// closingBracket returns the index of the ']' matching the '[' at open.
func closingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Package compiler validates subscriber candidates and groups them by
// declaring type and event type.
package compiler

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/drblury/eventbind/internal/model"
)

// Options configures a compilation pass.
type Options struct {
	Strategy model.Strategy
	// OutputPackagePath is the import path of the package the generated code
	// will live in. Declaring and event types must be importable from it.
	// Empty disables the internal package check.
	OutputPackagePath string
}

// Group holds the methods of one declaring type that accept one event type,
// in input order.
type Group struct {
	EventType model.TypeRef
	Methods   []model.CandidateMethod
}

// TypeBinding holds the groups of one declaring type, ordered by the first
// appearance of each event type.
type TypeBinding struct {
	Type    model.TypeRef
	Package model.PackageRef
	Groups  []*Group

	index map[string]*Group
}

// Group returns the group for the event type with the given key.
func (b *TypeBinding) Group(eventKey string) (*Group, bool) {
	g, ok := b.index[eventKey]
	return g, ok
}

// OwnerKey is the key of the pointer type listeners are registered as.
func (b *TypeBinding) OwnerKey() string {
	return "*" + b.Type.Key
}

// Result is the outcome of a successful pass.
type Result struct {
	Strategy model.Strategy
	Types    []*TypeBinding

	index map[string]*TypeBinding
}

// Lookup returns the binding of the declaring type with the given key.
func (r *Result) Lookup(typeKey string) (*TypeBinding, bool) {
	b, ok := r.index[typeKey]
	return b, ok
}

// MethodCount returns the number of bound methods.
func (r *Result) MethodCount() int {
	n := 0
	for _, b := range r.Types {
		for _, g := range b.Groups {
			n += len(g.Methods)
		}
	}
	return n
}

// Compile validates every candidate and groups them. The first violation
// aborts the pass; no partial result is returned.
func Compile(methods []model.CandidateMethod, opts Options) (*Result, error) {
	if !opts.Strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, opts.Strategy)
	}
	for i := range methods {
		if err := validate(&methods[i], opts); err != nil {
			return nil, err
		}
	}

	result := &Result{Strategy: opts.Strategy, index: make(map[string]*TypeBinding)}
	for _, m := range methods {
		recv := *m.Receiver
		recv.Pointer = false

		tb, ok := result.index[recv.Key]
		if !ok {
			tb = &TypeBinding{Type: recv, Package: m.Package, index: make(map[string]*Group)}
			result.index[recv.Key] = tb
			result.Types = append(result.Types, tb)
		}

		event := m.Params[0].Type
		g, ok := tb.index[event.Key]
		if !ok {
			g = &Group{EventType: event}
			tb.index[event.Key] = g
			tb.Groups = append(tb.Groups, g)
		}
		g.Methods = append(g.Methods, m)
	}
	return result, nil
}

func validate(m *model.CandidateMethod, opts Options) error {
	fail := func(rule Rule, format string, args ...any) error {
		e := &ValidationError{
			Rule:     rule,
			Method:   m.QualifiedName(),
			Position: m.Position,
			Detail:   fmt.Sprintf(format, args...),
		}
		if m.Receiver != nil {
			e.Type = m.Receiver.Key
		}
		return e
	}

	if m.Kind != model.KindMethod || m.Receiver == nil {
		return fail(RuleNotAMethod, "subscribe directive on a %s declaration", kindName(m.Kind))
	}
	if !token.IsExported(m.Name) {
		return fail(RuleMethodNotExported, "subscriber methods must be exported")
	}

	switch n := len(m.Params); {
	case n == 0:
		return fail(RuleTooFewParameters, "expected exactly one parameter, found none")
	case n > 1:
		return fail(RuleTooManyParameters, "expected exactly one parameter, found %d", n)
	case m.Variadic:
		return fail(RuleVariadicParameter, "the event parameter must not be variadic")
	}

	if err := checkResults(m, opts.Strategy, fail); err != nil {
		return err
	}

	recv := m.Receiver
	switch {
	case m.Package.Name == "main":
		return fail(RuleTypeNotAccessible, "package main cannot be imported")
	case recv.Generic:
		return fail(RuleTypeNotAccessible, "generic receiver %s cannot be bound", recv.Key)
	case !recv.Accessible || !token.IsExported(recv.Name):
		return fail(RuleTypeNotAccessible, "receiver type %s is not exported", recv.Name)
	case !importable(m.Package.Path, opts.OutputPackagePath):
		return fail(RuleTypeNotAccessible, "package %s is internal to another module tree", m.Package.Path)
	}

	event := m.Params[0].Type
	if !event.Accessible || event.Generic {
		return fail(RuleEventTypeNotAccessible, "event type %s cannot be named by generated code", event.Key)
	}
	for _, imp := range event.Imports {
		if imp.Name == "main" {
			return fail(RuleEventTypeNotAccessible, "event type %s is declared in package main", event.Key)
		}
		if !importable(imp.Path, opts.OutputPackagePath) {
			return fail(RuleEventTypeNotAccessible, "event type %s is internal to package %s", event.Key, imp.Path)
		}
	}
	return nil
}

func checkResults(m *model.CandidateMethod, strategy model.Strategy, fail func(Rule, string, ...any) error) error {
	if len(m.Results) == 0 {
		return nil
	}
	returnsError := false
	for _, r := range m.Results {
		if r.Key == "error" {
			returnsError = true
		}
	}
	if strategy == model.StrategyDirect {
		if returnsError {
			return fail(RuleDeclaresErrors, "direct subscribers must not return an error")
		}
		return fail(RuleUnsupportedResults, "direct subscribers must not return values")
	}
	if len(m.Results) == 1 && returnsError {
		return nil
	}
	return fail(RuleUnsupportedResults, "subscribers may return nothing or a single error")
}

// importable applies the internal package rule: a path containing an
// internal element is importable only from within the tree rooted at the
// parent of that element.
func importable(pkgPath, from string) bool {
	if from == "" || pkgPath == "" {
		return true
	}
	var root string
	switch {
	case strings.HasPrefix(pkgPath, "internal/") || pkgPath == "internal":
		root = ""
	case strings.Contains(pkgPath, "/internal/"):
		root = pkgPath[:strings.LastIndex(pkgPath, "/internal/")]
	case strings.HasSuffix(pkgPath, "/internal"):
		root = strings.TrimSuffix(pkgPath, "/internal")
	default:
		return true
	}
	if root == "" {
		return false
	}
	return from == root || strings.HasPrefix(from, root+"/")
}

func kindName(k model.DeclKind) string {
	if k == "" {
		return "non-method"
	}
	return string(k)
}

// Package model holds the values passed between discovery, the binding
// compiler and the emitter.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects how generated bindings call subscriber methods.
type Strategy string

const (
	// StrategyDeferred resolves methods by name through reflection the first
	// time a handler is built and caches the result.
	StrategyDeferred Strategy = "deferred"
	// StrategyDirect emits one precompiled thunk per method.
	StrategyDirect Strategy = "direct"
)

var ErrUnknownStrategy = errors.New("eventbind: unknown strategy")

var strategyAliases = map[string]Strategy{
	"deferred":        StrategyDeferred,
	"deferred-lookup": StrategyDeferred,
	"reflective":      StrategyDeferred,
	"direct":          StrategyDirect,
	"direct-call":     StrategyDirect,
	"anonymous":       StrategyDirect,
}

// ParseStrategy accepts the canonical strategy names and their aliases.
// An empty value selects StrategyDeferred.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrategyDeferred, nil
	}
	if st, ok := strategyAliases[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

func (s Strategy) Valid() bool {
	return s == StrategyDeferred || s == StrategyDirect
}

func (s Strategy) String() string {
	return string(s)
}

// DeclKind is the kind of declaration a subscribe directive was found on.
type DeclKind string

const (
	KindMethod DeclKind = "method"
	KindFunc   DeclKind = "func"
	KindType   DeclKind = "type"
	KindField  DeclKind = "field"
	KindValue  DeclKind = "value"
)

// PackageRef identifies the package a declaration lives in.
type PackageRef struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// TypeRef describes a type expression as written in source.
type TypeRef struct {
	// Key is the canonical spelling shared with binding.TypeKey.
	Key string `json:"key"`
	// Name is the declared name for named types, empty otherwise.
	Name    string `json:"name,omitempty"`
	PkgPath string `json:"pkgPath,omitempty"`
	PkgName string `json:"pkgName,omitempty"`
	Pointer bool   `json:"pointer,omitempty"`
	// Accessible is false when generated code in another package could not
	// name the type.
	Accessible bool `json:"accessible"`
	Generic    bool `json:"generic,omitempty"`
	// Imports lists every package the expression refers to.
	Imports []PackageRef `json:"imports,omitempty"`
}

func (t TypeRef) String() string {
	return t.Key
}

// Param is one declared parameter.
type Param struct {
	Name string  `json:"name,omitempty"`
	Type TypeRef `json:"type"`
}

// CandidateMethod is a declaration carrying the subscribe directive.
type CandidateMethod struct {
	Name string   `json:"name"`
	Kind DeclKind `json:"kind"`
	// Receiver is set for methods. Its Key names the base type; Pointer
	// records a pointer receiver.
	Receiver *TypeRef   `json:"receiver,omitempty"`
	Params   []Param    `json:"params,omitempty"`
	Variadic bool       `json:"variadic,omitempty"`
	Results  []TypeRef  `json:"results,omitempty"`
	Package  PackageRef `json:"package"`
	Position string     `json:"position,omitempty"`
}

// QualifiedName renders the candidate as (*pkg.T).Name, or pkg.Name for
// declarations without a receiver.
func (c CandidateMethod) QualifiedName() string {
	if c.Receiver == nil {
		if c.Package.Name == "" {
			return c.Name
		}
		return c.Package.Name + "." + c.Name
	}
	recv := c.Package.Name + "." + c.Receiver.Name
	if c.Receiver.Pointer {
		recv = "*" + recv
	}
	return "(" + recv + ")." + c.Name
}

package compiler

import (
	"errors"
	"fmt"
)

// Rule names a well-formedness rule for subscriber methods.
type Rule string

const (
	RuleNotAMethod             Rule = "not-a-method"
	RuleMethodNotExported      Rule = "method-not-exported"
	RuleTooFewParameters       Rule = "too-few-parameters"
	RuleTooManyParameters      Rule = "too-many-parameters"
	RuleVariadicParameter      Rule = "variadic-parameter"
	RuleDeclaresErrors         Rule = "declares-errors"
	RuleUnsupportedResults     Rule = "unsupported-results"
	RuleTypeNotAccessible      Rule = "type-not-accessible"
	RuleEventTypeNotAccessible Rule = "event-type-not-accessible"
)

var (
	ErrValidation      = errors.New("eventbind: subscriber validation failed")
	ErrInvalidStrategy = errors.New("eventbind: invalid strategy")
)

// ValidationError reports the first rule a candidate violated. Compile
// returns no result alongside it.
type ValidationError struct {
	Rule     Rule
	Method   string
	Type     string
	Position string
	Detail   string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("eventbind: %s: %s", e.Rule, e.Method)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Position != "" {
		msg = e.Position + ": " + msg
	}
	return msg
}

// Is allows errors.Is to match any ValidationError with ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

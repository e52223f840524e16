package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrDispatcherRequired = sterrors.New("eventbind: dispatcher is required")
	ErrNotRegistered      = sterrors.New("eventbind: listener is not registered")
	ErrAlreadyRegistered  = sterrors.New("eventbind: listener is already registered")
	ErrNoHandlers         = sterrors.New("eventbind: listener has no subscriber methods")
	ErrPublisherRequired  = sterrors.New("eventbind: publisher is required")
	ErrSubscriberRequired = sterrors.New("eventbind: subscriber is required")
	ErrTopicRequired      = sterrors.New("eventbind: topic is required")
	ErrConfigRequired     = sterrors.New("eventbind: configuration is required")
	ErrLoggerRequired     = sterrors.New("eventbind: logger is required")
	ErrEventTypeRequired  = sterrors.New("eventbind: event type header is required")
	ErrUnknownEventType   = sterrors.New("eventbind: event type is not registered")
	ErrServiceStarted     = sterrors.New("eventbind: service already started")
	ErrServiceRequired    = sterrors.New("eventbind: service is required")
	ErrUnsupportedContent = sterrors.New("eventbind: unsupported content type")
	ErrPrototypeRequired  = sterrors.New("eventbind: event prototype is required")
)

// ConfigValidationError wraps every problem found while validating a
// configuration.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("eventbind: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

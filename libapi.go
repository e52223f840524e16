package eventbind

import (
	"context"

	runtimepkg "github.com/drblury/eventbind/internal/runtime"
	"github.com/drblury/eventbind/internal/runtime/codec"
	configpkg "github.com/drblury/eventbind/internal/runtime/config"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	idspkg "github.com/drblury/eventbind/internal/runtime/ids"
	"github.com/drblury/eventbind/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
	transportpkg "github.com/drblury/eventbind/internal/runtime/transport"
	"github.com/drblury/eventbind/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	TransportFactory    = transportpkg.Factory

	Dispatcher       = runtimepkg.Dispatcher
	DispatcherOption = runtimepkg.DispatcherOption
	DeadEvent        = runtimepkg.DeadEvent
	Bridge           = runtimepkg.Bridge
	EventRegistry    = codec.Registry

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	// Delivery hooks
	DeliveryContext = runtimepkg.DeliveryContext
	DeliveryHooks   = runtimepkg.DeliveryHooks

	// Dispatch metrics
	DispatchMetrics  = runtimepkg.DispatchMetrics
	EventMetrics     = runtimepkg.EventMetrics
	DispatchSnapshot = runtimepkg.DispatchSnapshot

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	TransportBuilder      = transport.Builder
	TransportConfig       = transport.Config
	TransportRegistry     = transport.Registry
	TransportCapabilities = transport.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	NewDispatcher  = runtimepkg.NewDispatcher
	NewBridge      = runtimepkg.NewBridge
	NewEventTypes  = codec.NewRegistry
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	WithFallbackFinder   = runtimepkg.WithFallbackFinder
	WithDispatcherLogger = runtimepkg.WithDispatcherLogger
	WithDispatchMetrics  = runtimepkg.WithDispatchMetrics
	WithTracerProvider   = runtimepkg.WithTracerProvider

	NewMessage = runtimepkg.NewMessage
	Publish    = runtimepkg.Publish

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	DeliveryHooksMiddleware = runtimepkg.DeliveryHooksMiddleware
	LoggingHooks            = runtimepkg.LoggingHooks

	NewDispatchMetrics = runtimepkg.NewDispatchMetrics

	GetCapabilities          = transport.GetCapabilities
	DefaultTransportRegistry = transport.DefaultRegistry
	RegisterTransport        = transport.Register
	BuildTransport           = transport.Build

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	ErrDispatcherRequired = errspkg.ErrDispatcherRequired
	ErrNotRegistered      = errspkg.ErrNotRegistered
	ErrAlreadyRegistered  = errspkg.ErrAlreadyRegistered
	ErrNoHandlers         = errspkg.ErrNoHandlers
	ErrServiceRequired    = errspkg.ErrServiceRequired
	ErrServiceStarted     = errspkg.ErrServiceStarted
	ErrPublisherRequired  = errspkg.ErrPublisherRequired
	ErrTopicRequired      = errspkg.ErrTopicRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired
	ErrUnknownEventType   = errspkg.ErrUnknownEventType

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	DiscardLogger             = loggingpkg.Discard

	NewMetadata = metadatapkg.New
)

// NewID returns a new ULID string, the format used for message UUIDs.
func NewID() string {
	return idspkg.NewID()
}

// RegisterListener registers listener on svc.
func RegisterListener(svc *Service, listener any) error {
	if svc == nil {
		return ErrServiceRequired
	}
	return svc.Register(listener)
}

// PublishEvent publishes event on the topic of svc.
func PublishEvent(ctx context.Context, svc *Service, event any, md Metadata) error {
	if svc == nil {
		return ErrServiceRequired
	}
	return svc.Publish(ctx, event, md)
}

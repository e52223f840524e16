package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/eventbind/binding"
	"github.com/drblury/eventbind/internal/runtime/codec"
	configpkg "github.com/drblury/eventbind/internal/runtime/config"
	errspkg "github.com/drblury/eventbind/internal/runtime/errors"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
	transportpkg "github.com/drblury/eventbind/internal/runtime/transport"
	"github.com/drblury/eventbind/transport"
)

// BridgeHandlerName names the router handler that consumes the configured
// topic.
const BridgeHandlerName = "eventbind_bridge"

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the collaborators of a Service. Listeners can
// only be registered when Finder or a fallback binds their type.
type ServiceDependencies struct {
	// Finder resolves listeners, usually the Finder() of a generated package.
	Finder binding.Finder
	// FallbackFinders are consulted for listener types Finder does not bind.
	FallbackFinders []binding.Finder
	// Events are prototype values of the event types the bridge decodes.
	Events []any

	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory

	// Hooks are called around every bridged message when any is set.
	Hooks DeliveryHooks

	// Registerer receives dispatch and router metrics when metrics are
	// enabled. Nil selects the Prometheus default registerer.
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
}

// Service connects a Dispatcher to a Watermill topic: events published with
// Publish travel over the configured transport and are posted to the
// dispatcher of every consuming service.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	transport  transportpkg.Transport
	router     *message.Router
	dispatcher *Dispatcher
	bridge     *Bridge
	metrics    *DispatchMetrics
	registerer prometheus.Registerer
	tracer     trace.Tracer

	startMu sync.Mutex
	started bool
}

// NewService validates conf, builds the transport and router, and wires the
// middleware chain. Register listeners before calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}
	if conf.Topic == "" {
		return nil, errspkg.ErrTopicRequired
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"topic":         conf.Topic,
		"config":        conf.String(),
	})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		registerer: deps.Registerer,
	}
	if s.registerer == nil {
		s.registerer = prometheus.DefaultRegisterer
	}
	if deps.TracerProvider != nil {
		s.tracer = deps.TracerProvider.Tracer(tracerName)
	} else {
		s.tracer = otel.Tracer(tracerName)
	}

	opts := []DispatcherOption{WithDispatcherLogger(log), WithTracerProvider(deps.TracerProvider)}
	for _, f := range deps.FallbackFinders {
		opts = append(opts, WithFallbackFinder(f))
	}
	if conf.MetricsEnabled {
		s.metrics = NewDispatchMetrics(s.registerer)
		if err := s.metrics.Register(); err != nil {
			return nil, fmt.Errorf("register dispatch metrics: %w", err)
		}
		opts = append(opts, WithDispatchMetrics(s.metrics))
	}
	s.dispatcher = NewDispatcher(deps.Finder, opts...)

	events := codec.NewRegistry()
	if err := events.Register(deps.Events...); err != nil {
		return nil, err
	}
	bridge, err := NewBridge(s.dispatcher, events, log)
	if err != nil {
		return nil, err
	}
	s.bridge = bridge

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	s.transport, err = factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, errors.Join(err, s.transport.Close())
	}
	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, errors.Join(err, s.transport.Close())
	}
	return s, nil
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares)+1)
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)
	if deps.Hooks.OnStart != nil || deps.Hooks.OnDone != nil || deps.Hooks.OnError != nil {
		registrations = append(registrations, DeliveryHooksMiddleware(deps.Hooks))
	}

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("register middleware %s: %w", name, err)
		}
	}
	return nil
}

// Register stores the handlers of listener on the service dispatcher.
func (s *Service) Register(listener any) error {
	return s.dispatcher.Register(listener)
}

// Unregister removes and invalidates the handlers of listener.
func (s *Service) Unregister(listener any) error {
	return s.dispatcher.Unregister(listener)
}

// RegisterEvents makes the types of the given prototype values decodable by
// the bridge.
func (s *Service) RegisterEvents(prototypes ...any) error {
	return s.bridge.Events().Register(prototypes...)
}

// Post delivers event to local listeners without going through the
// transport.
func (s *Service) Post(ctx context.Context, event any) error {
	return s.dispatcher.Post(ctx, event)
}

// Publish sends event to the configured topic. Its type becomes decodable
// by this service as a side effect.
func (s *Service) Publish(ctx context.Context, event any, md metadatapkg.Metadata) error {
	if event != nil {
		s.bridge.Events().RegisterType(reflect.TypeOf(event))
	}
	return Publish(ctx, s.transport.Publisher, s.Conf.Topic, event, md)
}

// Start consumes the configured topic until ctx is cancelled or Close is
// called. A service starts once.
func (s *Service) Start(ctx context.Context) error {
	s.startMu.Lock()
	if s.started {
		s.startMu.Unlock()
		return errspkg.ErrServiceStarted
	}
	s.started = true
	s.startMu.Unlock()

	s.router.AddNoPublisherHandler(BridgeHandlerName, s.Conf.Topic, s.transport.Subscriber, s.bridge.HandleMessage)
	s.Logger.Info("Starting event service", loggingpkg.LogFields{"topic": s.Conf.Topic})
	return routerRun(s.router, ctx)
}

// Running is closed once the router has started all handlers.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Close stops the router and closes the transport.
func (s *Service) Close() error {
	return errors.Join(s.router.Close(), s.transport.Close())
}

func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Metrics returns the dispatch metrics, or nil when metrics are disabled.
func (s *Service) Metrics() *DispatchMetrics {
	return s.metrics
}

// Capabilities reports the guarantees of the configured transport.
func (s *Service) Capabilities() transport.Capabilities {
	return transportpkg.Capabilities(s.Conf)
}

// MetricsHandler serves the registered metrics in the Prometheus text
// format. It falls back to the default gatherer when the configured
// registerer cannot be gathered.
func (s *Service) MetricsHandler() http.Handler {
	if g, ok := s.registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

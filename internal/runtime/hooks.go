package runtime

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
	metadatapkg "github.com/drblury/eventbind/internal/runtime/metadata"
)

// DeliveryContext describes one bridged message as it passes through the
// router.
type DeliveryContext struct {
	MessageUUID   string
	EventType     string
	CorrelationID string
	Context       context.Context
	StartedAt     time.Time
	// Duration is only set for OnDone and OnError.
	Duration time.Duration
}

// DeliveryHooks are called around every bridged message. Nil hooks are
// skipped.
type DeliveryHooks struct {
	OnStart func(DeliveryContext)
	OnDone  func(DeliveryContext)
	OnError func(DeliveryContext, error)
}

// Merge returns hooks that call h first and then other.
func (h DeliveryHooks) Merge(other DeliveryHooks) DeliveryHooks {
	return DeliveryHooks{
		OnStart: chain(h.OnStart, other.OnStart),
		OnDone:  chain(h.OnDone, other.OnDone),
		OnError: chainErr(h.OnError, other.OnError),
	}
}

func chain(a, b func(DeliveryContext)) func(DeliveryContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DeliveryContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErr(a, b func(DeliveryContext, error)) func(DeliveryContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DeliveryContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// DeliveryHooksMiddleware registers hooks on the bridge router.
func DeliveryHooksMiddleware(hooks DeliveryHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "delivery_hooks",
		Middleware: deliveryHooksMiddleware(hooks),
	}
}

func deliveryHooksMiddleware(hooks DeliveryHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			md := metadatapkg.FromWatermill(msg.Metadata)
			dc := DeliveryContext{
				MessageUUID:   msg.UUID,
				EventType:     md.EventType(),
				CorrelationID: md.CorrelationID(),
				Context:       msg.Context(),
				StartedAt:     time.Now(),
			}
			if hooks.OnStart != nil {
				hooks.OnStart(dc)
			}

			msgs, err := h(msg)
			dc.Duration = time.Since(dc.StartedAt)

			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(dc, err)
				}
			} else if hooks.OnDone != nil {
				hooks.OnDone(dc)
			}
			return msgs, err
		}
	}
}

// LoggingHooks logs the outcome of every bridged message.
func LoggingHooks(logger loggingpkg.ServiceLogger) DeliveryHooks {
	logger = loggingpkg.OrDiscard(logger)
	return DeliveryHooks{
		OnDone: func(dc DeliveryContext) {
			logger.Debug("Event delivered", loggingpkg.LogFields{
				"message_uuid":   dc.MessageUUID,
				"event_type":     dc.EventType,
				"correlation_id": dc.CorrelationID,
				"duration_ms":    dc.Duration.Milliseconds(),
			})
		},
		OnError: func(dc DeliveryContext, err error) {
			logger.Error("Event delivery failed", err, loggingpkg.LogFields{
				"message_uuid":   dc.MessageUUID,
				"event_type":     dc.EventType,
				"correlation_id": dc.CorrelationID,
				"duration_ms":    dc.Duration.Milliseconds(),
			})
		},
	}
}

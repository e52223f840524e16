package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by DispatchMetrics.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// DispatchMetrics tracks handler deliveries per event type.
type DispatchMetrics struct {
	mu sync.RWMutex

	events map[string]*EventMetrics

	deliveriesTotal *prometheus.CounterVec
	deadEventsTotal *prometheus.CounterVec
	handlersCurrent *prometheus.GaugeVec
	durationSeconds *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

// EventMetrics holds the counters of one event type.
type EventMetrics struct {
	Delivered     uint64    `json:"delivered"`
	Failed        uint64    `json:"failed"`
	Skipped       uint64    `json:"skipped"`
	Dead          uint64    `json:"dead"`
	Handlers      int       `json:"handlers"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// DispatchSnapshot is a point-in-time copy of every event type's counters.
type DispatchSnapshot struct {
	TotalDelivered uint64                   `json:"total_delivered"`
	TotalFailed    uint64                   `json:"total_failed"`
	TotalDead      uint64                   `json:"total_dead"`
	Events         map[string]*EventMetrics `json:"events"`
	CollectedAt    time.Time                `json:"collected_at"`
}

func newDispatchCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventbind",
			Subsystem: "dispatch",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewDispatchMetrics creates the collectors. A nil registerer selects the
// Prometheus default registerer.
func NewDispatchMetrics(registerer prometheus.Registerer) *DispatchMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &DispatchMetrics{
		events:          make(map[string]*EventMetrics),
		registerer:      registerer,
		deliveriesTotal: newDispatchCounterVec("deliveries_total", "Handler invocations by event type and outcome", []string{"event_type", "outcome"}),
		deadEventsTotal: newDispatchCounterVec("dead_events_total", "Events posted without any registered handler", []string{"event_type"}),
		handlersCurrent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventbind",
				Subsystem: "dispatch",
				Name:      "handlers",
				Help:      "Registered handlers by event type",
			},
			[]string{"event_type"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventbind",
				Subsystem: "dispatch",
				Name:      "delivery_duration_seconds",
				Help:      "Time spent in a single handler invocation",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"event_type"},
		),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *DispatchMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	for _, c := range []prometheus.Collector{
		m.deliveriesTotal,
		m.deadEventsTotal,
		m.handlersCurrent,
		m.durationSeconds,
	} {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordDelivery records one handler invocation.
func (m *DispatchMetrics) RecordDelivery(eventType, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	em := m.eventMetrics(eventType)
	switch outcome {
	case OutcomeDelivered:
		em.Delivered++
	case OutcomeFailed:
		em.Failed++
	case OutcomeSkipped:
		em.Skipped++
	}
	em.LastUpdatedAt = time.Now()

	m.deliveriesTotal.WithLabelValues(eventType, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.durationSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
	}
}

// RecordDeadEvent records an event nobody subscribed to.
func (m *DispatchMetrics) RecordDeadEvent(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	em := m.eventMetrics(eventType)
	em.Dead++
	em.LastUpdatedAt = time.Now()

	m.deadEventsTotal.WithLabelValues(eventType).Inc()
}

// SetHandlers records the number of handlers registered for eventType.
func (m *DispatchMetrics) SetHandlers(eventType string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	em := m.eventMetrics(eventType)
	em.Handlers = n
	em.LastUpdatedAt = time.Now()

	m.handlersCurrent.WithLabelValues(eventType).Set(float64(n))
}

// Snapshot returns a copy of the current counters.
func (m *DispatchMetrics) Snapshot() DispatchSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := DispatchSnapshot{
		Events:      make(map[string]*EventMetrics, len(m.events)),
		CollectedAt: time.Now(),
	}
	for name, em := range m.events {
		cp := *em
		snapshot.Events[name] = &cp
		snapshot.TotalDelivered += em.Delivered
		snapshot.TotalFailed += em.Failed
		snapshot.TotalDead += em.Dead
	}
	return snapshot
}

// Event returns a copy of the counters of eventType, or nil.
func (m *DispatchMetrics) Event(eventType string) *EventMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if em, ok := m.events[eventType]; ok {
		cp := *em
		return &cp
	}
	return nil
}

func (m *DispatchMetrics) eventMetrics(eventType string) *EventMetrics {
	if em, ok := m.events[eventType]; ok {
		return em
	}
	em := &EventMetrics{}
	m.events[eventType] = em
	return em
}

// Reset clears every counter.
func (m *DispatchMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = make(map[string]*EventMetrics)
	m.deliveriesTotal.Reset()
	m.deadEventsTotal.Reset()
	m.handlersCurrent.Reset()
	m.durationSeconds.Reset()
}

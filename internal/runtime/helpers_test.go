package runtime

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/eventbind/binding"
	configpkg "github.com/drblury/eventbind/internal/runtime/config"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
	transportpkg "github.com/drblury/eventbind/internal/runtime/transport"
)

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func newTestConfig() *configpkg.Config {
	return &configpkg.Config{
		PubSubSystem:         "channel",
		Topic:                "eventbind.test",
		RetryMaxRetries:      1,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     time.Millisecond,
	}
}

// recorder is safe to read while the router delivers to it.
type recorder struct {
	mu    sync.Mutex
	ticks []int
}

func (r *recorder) OnTick(e tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, e.N)
}

func (r *recorder) Ticks() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.ticks))
	copy(out, r.ticks)
	return out
}

func recorderTable() *binding.Table {
	return binding.MustBuild(binding.NewTableBuilder().
		Bind(reflect.TypeFor[*recorder](),
			binding.Direct("(*recorder).OnTick", (*recorder).OnTick),
		))
}

type testPublisher struct {
	mu       sync.Mutex
	messages []*message.Message
	topics   []string
	err      error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for range messages {
		p.topics = append(p.topics, topic)
	}
	p.messages = append(p.messages, messages...)
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Messages() []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]*message.Message, len(p.messages))
	copy(clone, p.messages)
	return clone
}

type testSubscriber struct {
	err    error
	closed bool
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error {
	s.closed = true
	return nil
}

func stubTransportFactory(pub message.Publisher, sub message.Subscriber) transportpkg.Factory {
	return transportpkg.FactoryFunc(func(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
		return transportpkg.Transport{Publisher: pub, Subscriber: sub}, nil
	})
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"yardops/pkg/domain"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Publish when the send buffer is full.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned by Publish after Shutdown.
var ErrClosed = errors.New("publisher closed")

// PublisherConfig tunes the publisher.
type PublisherConfig struct {
	Topic      string
	BufferSize int
}

// Publisher queues workflow events and sends them from a single goroutine, so
// a slow broker never holds up a commit. Events are keyed by record id.
type Publisher struct {
	producer Producer
	config   PublisherConfig
	log      *zap.Logger
	onFail   func()

	queue    chan domain.Event
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.log = l
		}
	}
}

// OnFailure registers a callback invoked for every event that is dropped or
// fails to send.
func OnFailure(fn func()) PublisherOption {
	return func(p *Publisher) { p.onFail = fn }
}

// NewPublisher returns a publisher over producer. Start must be called for
// events to be delivered.
func NewPublisher(producer Producer, config PublisherConfig, opts ...PublisherOption) *Publisher {
	if config.Topic == "" {
		config.Topic = "yard-events"
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	p := &Publisher{
		producer: producer,
		config:   config,
		log:      zap.NewNop(),
		onFail:   func() {},
		queue:    make(chan domain.Event, config.BufferSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish enqueues ev without blocking.
func (p *Publisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		p.onFail()
		return ErrQueueFull
	}
}

// Start launches the sender. It sends queued events until Shutdown is called
// or ctx ends; events still queued when ctx ends are counted as failed.
func (p *Publisher) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.run(ctx)
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case ev, ok := <-p.queue:
			if !ok {
				return
			}
			p.send(ctx, ev)
		case <-ctx.Done():
			p.Shutdown()
			for ev := range p.queue {
				p.fail(ev, ctx.Err())
			}
			return
		}
	}
}

func (p *Publisher) send(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.fail(ev, err)
		return
	}
	if err := p.producer.SendMessage(ctx, p.config.Topic, []byte(ev.ID), payload); err != nil {
		p.fail(ev, err)
		return
	}
	p.log.Debug("event sent", zap.String("type", string(ev.Type)), zap.String("id", ev.ID))
}

func (p *Publisher) fail(ev domain.Event, err error) {
	p.onFail()
	p.log.Warn("event not delivered", zap.String("type", string(ev.Type)), zap.String("id", ev.ID), zap.Error(err))
}

// Shutdown stops accepting events. Queued events are still sent.
func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
}

// Close shuts down, waits for the sender to drain if it was started, and
// closes the producer.
func (p *Publisher) Close(ctx context.Context) error {
	p.Shutdown()
	if p.started.Load() {
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.producer.Close()
}

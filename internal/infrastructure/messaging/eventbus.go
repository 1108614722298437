// Package messaging provides the in-memory event bus connecting the write
// side to its subscribers (cache invalidation, audit logging).
package messaging

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus implements shared.EventBus for a single process.
//
// Publish runs handlers asynchronously through a bounded worker pool; the
// write path never blocks on a slow subscriber. A full queue drops the
// event with a warning rather than stalling the publisher: every subscriber
// here is a cache invalidation or a log line, and TTLs bound the damage of
// a dropped one.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler

	queue   chan busTask
	wg      sync.WaitGroup
	closed  atomic.Bool
	timeout time.Duration

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64

	log *logger.Logger
}

type busTask struct {
	handler shared.EventHandler
	event   shared.Event
}

// Options configures the bus.
type Options struct {
	// Workers is the async pool size (default 4).
	Workers int

	// QueueSize bounds the pending task queue (default 256).
	QueueSize int

	// HandlerTimeout bounds a single handler invocation (default 10s).
	HandlerTimeout time.Duration
}

// NewInMemoryEventBus creates and starts the bus.
func NewInMemoryEventBus(opts Options, log *logger.Logger) *InMemoryEventBus {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}

	bus := &InMemoryEventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		queue:    make(chan busTask, opts.QueueSize),
		timeout:  opts.HandlerTimeout,
		log:      log.With(logger.Component("eventbus")),
	}

	for i := 0; i < opts.Workers; i++ {
		bus.wg.Add(1)
		go bus.worker()
	}

	return bus
}

// Subscribe registers a handler for the given event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish delivers the event to all subscribed handlers asynchronously.
//
// The read lock is held across the closed check and the queue sends, so a
// concurrent Close cannot close the channel between them. The sends are
// non-blocking, so holding the lock never stalls on a full queue.
func (b *InMemoryEventBus) Publish(ctx context.Context, event shared.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return fmt.Errorf("event bus is closed")
	}

	targets := make([]shared.EventHandler, 0,
		len(b.handlers[event.EventType()])+len(b.allHandlers))
	targets = append(targets, b.handlers[event.EventType()]...)
	targets = append(targets, b.allHandlers...)

	b.published.Add(1)

	for _, handler := range targets {
		select {
		case b.queue <- busTask{handler: handler, event: event}:
		default:
			b.dropped.Add(1)
			b.log.Warn("event dropped, queue full",
				logger.String("event", string(event.EventType())),
				logger.String("handler", handler.Name()),
			)
		}
	}

	return nil
}

func (b *InMemoryEventBus) worker() {
	defer b.wg.Done()

	for task := range b.queue {
		b.dispatch(task)
	}
}

func (b *InMemoryEventBus) dispatch(task busTask) {
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			b.log.Error("event handler panicked",
				logger.String("handler", task.handler.Name()),
				logger.String("event", string(task.event.EventType())),
				logger.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := task.handler.Handle(ctx, task.event); err != nil {
		b.failed.Add(1)
		b.log.Warn("event handler failed",
			logger.String("handler", task.handler.Name()),
			logger.String("event", string(task.event.EventType())),
			logger.Err(err),
		)
	}
}

// Stats reports bus counters.
type Stats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

// Stats returns a snapshot of the bus counters.
func (b *InMemoryEventBus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
		Failed:    b.failed.Load(),
		Queued:    len(b.queue),
	}
}

// Close stops accepting events and waits for in-flight handlers. The
// write lock excludes publishers while the channel closes; the wait runs
// outside it so draining workers never deadlock against a publisher.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	if !b.closed.CompareAndSwap(false, true) {
		b.mu.Unlock()
		return
	}
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
}

package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds one handler for several event types
func (b *Bus) SubscribeAll(handler Handler, eventTypes ...EventType) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run in their
// own goroutines, and a panicking handler is logged and contained.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Drain waits for running handlers to finish or for ctx to end
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransactionalBus stages events raised inside a critical section and
// forwards them once the section has committed and released its locks.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stages an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits staged events in order. Handlers get a background context so
// they outlive the request that produced the events.
func (b *TransactionalBus) Flush(ctx context.Context) {
	if len(b.pending) == 0 {
		return
	}
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing staged events")

	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops staged events after a failed mutation
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of staged events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

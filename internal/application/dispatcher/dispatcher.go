package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/workdeck/spending/internal/domain/event"
)

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher fans store changes out to subscribed views
type Dispatcher interface {
	// Subscribe registers a handler for an event type (or AllEvents) and
	// returns a function that removes it again
	Subscribe(eventType event.Type, handler Handler) (unsubscribe func())

	// Dispatch runs every matching handler synchronously, in registration order.
	// A failing handler does not stop the others; all failures are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// Close rejects further dispatches
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]subscription
	logger   Logger
	seq      atomic.Int64
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]subscription),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) func() {
	sub := subscription{id: d.seq.Add(1), eventType: eventType, handler: handler}

	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], sub)
	d.mu.Unlock()
	d.logInfo("Handler registered", "event_type", eventType, "handler", sub.name())

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(sub) })
	}
}

func (d *eventDispatcher) remove(sub subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.handlers[sub.eventType]
	kept := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != sub.id {
			kept = append(kept, s)
		}
	}
	d.handlers[sub.eventType] = kept
	d.logInfo("Handler unregistered", "event_type", sub.eventType, "handler", sub.name())
}

// matching returns a snapshot of the handlers for evt: type-specific first, then wildcard
func (d *eventDispatcher) matching(eventType event.Type) []subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	specific := d.handlers[eventType]
	wildcard := d.handlers[AllEvents]
	out := make([]subscription, 0, len(specific)+len(wildcard))
	out = append(out, specific...)
	return append(out, wildcard...)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	var errs []error
	for _, sub := range d.matching(evt.Type) {
		if err := d.safeExecute(ctx, evt, sub); err != nil {
			d.logError("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler", sub.name(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s failed: %w", sub.name(), err))
		}
	}

	return errors.Join(errs...)
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.logInfo("Dispatcher closed")
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, sub subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logError("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler", sub.name(),
				"panic", r,
			)
		}
	}()

	return sub.handler(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) logError(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}

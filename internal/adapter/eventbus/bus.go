package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/platform/logger"
	"github.com/rl1809/order-service/internal/port"
)

var _ port.EventBus = (*Bus)(nil)

type Handler func(ctx context.Context, event domain.Event) error

type Subscription uint64

type subscription struct {
	id      Subscription
	name    string
	target  reflect.Type
	handler Handler
}

// Bus delivers events synchronously on the publishing goroutine. Handlers
// run in registration order and the first failure stops delivery.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID Subscription
	log    *logger.Logger
}

func New(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{log: log.With("component", "event_bus")}
}

// Register adds a handler for events assignable to target. An interface
// type matches every event implementing it, a concrete type only itself.
func (b *Bus) Register(name string, target reflect.Type, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, name: name, target: target, handler: h})
	return b.nextID
}

// Unregister reports whether the subscription was still active.
func (b *Bus) Unregister(id Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe registers a typed handler, for example
// Subscribe(bus, "audit", func(ctx context.Context, e domain.ItemAdded) error { ... }).
func Subscribe[E domain.Event](b *Bus, name string, fn func(ctx context.Context, event E) error) Subscription {
	return b.Register(name, reflect.TypeFor[E](), func(ctx context.Context, event domain.Event) error {
		typed, ok := event.(E)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	})
}

func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	const op = "publish_event"

	if event == nil {
		return apperr.Infrastructure(op, fmt.Errorf("nil event"))
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	eventType := reflect.TypeOf(event)
	for _, s := range subs {
		if !matches(s.target, eventType) {
			continue
		}
		if err := b.deliver(ctx, s, event); err != nil {
			b.log.Warn("event handler failed",
				"handler", s.name,
				"event", event.EventName(),
				"order_id", event.AggregateID().String(),
				"error", err,
			)
			return apperr.Infrastructure(op, fmt.Errorf("handler %s: %w", s.name, err))
		}
	}
	return nil
}

func matches(target, eventType reflect.Type) bool {
	if target.Kind() == reflect.Interface {
		return eventType.Implements(target)
	}
	return eventType == target
}

func (b *Bus) deliver(ctx context.Context, s subscription, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panic", "handler", s.name, "event", event.EventName(), "panic", r)
			err = &panicError{Val: r}
		}
	}()
	return s.handler(ctx, event)
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("handler panicked: %v", e.Val) }

package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/logging"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

// Bus is an in-process, synchronous event bus. Handlers run on the caller's
// goroutine in registration order. A failing handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.DomainEventName][]ports.EventHandler
	logger   *slog.Logger
}

var _ ports.EventBus = (*Bus)(nil)

// New creates an empty event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[domain.DomainEventName][]ports.EventHandler),
		logger:   logger.With("component", "event_bus"),
	}
}

// On registers handler for name. Handlers for the same name run in the order
// they were registered.
func (b *Bus) On(name domain.DomainEventName, handler ports.EventHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Emit delivers payload to every handler registered for name. It never fails
// from the producer's point of view.
func (b *Bus) Emit(ctx context.Context, name domain.DomainEventName, payload any) {
	b.mu.RLock()
	handlers := b.handlers[name]
	b.mu.RUnlock()

	metrics.DomainEventsTotal.WithLabelValues(string(name)).Inc()

	if len(handlers) == 0 {
		b.logger.DebugContext(ctx, "no handlers for domain event", "event", name)
		return
	}

	for i, handler := range handlers {
		if err := b.dispatch(ctx, name, handler, payload); err != nil {
			metrics.DomainEventHandlerErrors.WithLabelValues(string(name)).Inc()
			b.logger.ErrorContext(ctx, "domain event handler failed",
				"event", name,
				"handler_index", i,
				"error", err,
			)
		}
	}
}

// Handlers returns how many handlers are registered for name.
func (b *Bus) Handlers(name domain.DomainEventName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus) dispatch(ctx context.Context, name domain.DomainEventName, handler ports.EventHandler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(b.logger.With("event", name), r)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, payload)
}

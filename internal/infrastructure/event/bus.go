// Package event provides the in-process domain event bus.
//
// Handlers run synchronously in the publishing goroutine unless they
// implement AsyncHandler, in which case they run after all synchronous
// handlers on their own goroutine with a context detached from the request.
package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/shared"
)

const tracerName = "github.com/kontor/backend/internal/infrastructure/event"

// AsyncHandler marks handlers that should not block the publisher
type AsyncHandler interface {
	shared.EventHandler
	Async() bool
}

// InMemoryEventBus implements shared.EventBus in process
type InMemoryEventBus struct {
	registry *handlerRegistry
	logger   *zap.Logger
	tracer   trace.Tracer
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: newHandlerRegistry(),
		logger:   logger.Named("event_bus"),
		tracer:   otel.Tracer(tracerName),
	}
	b.running.Store(true)
	return b
}

func isAsync(h shared.EventHandler) bool {
	a, ok := h.(AsyncHandler)
	return ok && a.Async()
}

// Publish dispatches events. Handler errors are logged and never returned so
// a failing side effect cannot roll back the operation that raised the event.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		handlers := b.registry.forType(ev.EventType())
		var deferred []shared.EventHandler

		for _, h := range handlers {
			if isAsync(h) {
				deferred = append(deferred, h)
				continue
			}
			b.dispatch(ctx, h, ev)
		}

		if len(deferred) == 0 {
			continue
		}
		if !b.running.Load() {
			b.logger.Warn("event bus stopped, running async handlers inline",
				zap.String("event_type", ev.EventType()),
			)
			for _, h := range deferred {
				b.dispatch(ctx, h, ev)
			}
			continue
		}
		detached := context.WithoutCancel(ctx)
		for _, h := range deferred {
			b.wg.Add(1)
			go func(h shared.EventHandler, ev shared.DomainEvent) {
				defer b.wg.Done()
				b.dispatch(detached, h, ev)
			}(h, ev)
		}
	}
	return nil
}

// Subscribe registers a handler; without explicit types the handler's own EventTypes are used
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.unregister(handler)
}

// Start enables asynchronous dispatch
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop waits for in-flight asynchronous handlers or until ctx is done
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus: waiting for handlers: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) {
	ctx, span := b.tracer.Start(ctx, "event "+ev.EventType(),
		trace.WithAttributes(
			attribute.String("event.type", ev.EventType()),
			attribute.String("event.id", ev.EventID().String()),
			attribute.String("tenant.id", ev.TenantID().String()),
			attribute.String("event.handler", fmt.Sprintf("%T", h)),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "handler panicked")
			b.logger.Error("handler panicked",
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := h.Handle(ctx, ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error("handler failed to process event",
			zap.String("event_type", ev.EventType()),
			zap.String("event_id", ev.EventID().String()),
			zap.String("tenant_id", ev.TenantID().String()),
			zap.Error(err),
		)
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/cache"
)

func newEvent(eventType string) shared.DomainEvent {
	ev := shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New(), uuid.New())
	return &ev
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []string
	err    error
	panics bool
	async  bool
	done   chan struct{}
}

func (h *recordingHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	h.seen = append(h.seen, ev.EventType())
	h.mu.Unlock()
	if h.done != nil {
		defer func() { h.done <- struct{}{} }()
	}
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }
func (h *recordingHandler) Async() bool          { return h.async }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("routes by type and to wildcard handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		paid := &recordingHandler{types: []string{"InvoicePaid"}}
		all := &recordingHandler{}
		bus.Subscribe(paid)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(context.Background(), newEvent("InvoicePaid"), newEvent("InvoiceSent")))

		assert.Equal(t, []string{"InvoicePaid"}, paid.seen)
		assert.Equal(t, []string{"InvoicePaid", "InvoiceSent"}, all.seen)
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		h := &recordingHandler{types: []string{"InvoicePaid"}}
		bus.Subscribe(h, "InvoiceOverdue")

		require.NoError(t, bus.Publish(context.Background(), newEvent("InvoicePaid"), newEvent("InvoiceOverdue")))
		assert.Equal(t, []string{"InvoiceOverdue"}, h.seen)
	})

	t.Run("failing and panicking handlers do not stop the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"X"}, err: errors.New("boom")}
		panicking := &recordingHandler{types: []string{"X"}, panics: true}
		ok := &recordingHandler{types: []string{"X"}}
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		assert.NoError(t, bus.Publish(context.Background(), newEvent("X")))
		assert.Equal(t, 1, ok.count())
	})

	t.Run("unsubscribe removes the handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &recordingHandler{types: []string{"X"}}
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(context.Background(), newEvent("X")))
		assert.Equal(t, 0, h.count())
	})
}

func TestInMemoryEventBus_Async(t *testing.T) {
	t.Run("async handlers outlive a cancelled request context", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &recordingHandler{types: []string{"X"}, async: true, done: make(chan struct{}, 1)}
		bus.Subscribe(h)

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, bus.Publish(ctx, newEvent("X")))
		cancel()

		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Fatal("async handler did not run")
		}
		require.NoError(t, bus.Stop(context.Background()))
		assert.Equal(t, 1, h.count())
	})

	t.Run("stopped bus runs async handlers inline", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		require.NoError(t, bus.Stop(context.Background()))
		h := &recordingHandler{types: []string{"X"}, async: true}
		bus.Subscribe(h)

		require.NoError(t, bus.Publish(context.Background(), newEvent("X")))
		assert.Equal(t, 1, h.count())
	})
}

func TestIdempotentHandler(t *testing.T) {
	t.Run("handles each event once", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		defer store.Close()
		inner := &recordingHandler{types: []string{"X"}}
		h := NewIdempotentHandler(inner, store, 0, nil)

		ev := newEvent("X")
		require.NoError(t, h.Handle(context.Background(), ev))
		require.NoError(t, h.Handle(context.Background(), ev))
		require.NoError(t, h.Handle(context.Background(), newEvent("X")))

		assert.Equal(t, 2, inner.count())
		assert.Equal(t, IdempotencyStats{Processed: 2, Duplicate: 1}, h.Stats())
		assert.Equal(t, []string{"X"}, h.EventTypes())
	})

	t.Run("two handlers of the same event are independent", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		defer store.Close()
		a := NewIdempotentHandler(&recordingHandler{}, store, time.Hour, nil)
		b := NewIdempotentHandler(&otherHandler{}, store, time.Hour, nil)

		ev := newEvent("X")
		require.NoError(t, a.Handle(context.Background(), ev))
		require.NoError(t, b.Handle(context.Background(), ev))
		assert.Equal(t, int64(1), a.Stats().Processed)
		assert.Equal(t, int64(1), b.Stats().Processed)
	})

	t.Run("errors are counted and returned", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		defer store.Close()
		h := NewIdempotentHandler(&recordingHandler{err: errors.New("boom")}, store, time.Hour, nil)

		assert.Error(t, h.Handle(context.Background(), newEvent("X")))
		assert.Equal(t, int64(1), h.Stats().Failed)
	})

	t.Run("preserves async marker", func(t *testing.T) {
		h := NewIdempotentHandler(&recordingHandler{async: true}, nil, 0, nil)
		assert.True(t, h.Async())
	})
}

type otherHandler struct{}

func (otherHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (otherHandler) EventTypes() []string                             { return nil }

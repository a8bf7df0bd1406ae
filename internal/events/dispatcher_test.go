package events

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherRunsHandlersSynchronously(t *testing.T) {
	bus := NewInMemoryDispatcher(zap.NewNop())

	var order []string
	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCreated}))
	// Handlers ran on the publishing goroutine, in registration order.
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	bus := NewInMemoryDispatcher(zap.NewNop())

	var reached bool
	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		return fmt.Errorf("handler broke")
	})
	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCreated})
	assert.NoError(t, err, "publisher never sees handler failures")
	assert.True(t, reached, "a failing handler does not block the rest")
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	bus := NewInMemoryDispatcher(zap.NewNop())

	var called bool
	bus.Subscribe(EventTicketRush, func(context.Context, Event) error {
		called = true
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCreated}))
	assert.False(t, called)
}

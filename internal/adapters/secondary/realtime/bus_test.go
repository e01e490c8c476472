package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second, other int
	bus.Subscribe(domain.EventMessageReceived, func(domain.Frame) { first++ })
	bus.Subscribe(domain.EventMessageReceived, func(domain.Frame) { second++ })
	bus.Subscribe(domain.EventTypingIndicator, func(domain.Frame) { other++ })

	bus.Publish(domain.Frame{Type: domain.EventMessageReceived})
	bus.Publish(domain.Frame{Type: domain.EventMessageReceived})

	assert.Equal(t, 2, first, "registering a second handler must not replace the first")
	assert.Equal(t, 2, second)
	assert.Equal(t, 0, other, "subscribers only see their own event type")
}

func TestBusCancel(t *testing.T) {
	bus := NewBus()

	var calls int
	cancel := bus.Subscribe(domain.EventMessagesRead, func(domain.Frame) { calls++ })

	bus.Publish(domain.Frame{Type: domain.EventMessagesRead})
	require.Equal(t, 1, calls)

	cancel()
	cancel() // double cancel is safe

	bus.Publish(domain.Frame{Type: domain.EventMessagesRead})
	assert.Equal(t, 1, calls)
}

func TestBusClear(t *testing.T) {
	bus := NewBus()

	var calls int
	bus.Subscribe(domain.EventUserOnline, func(domain.Frame) { calls++ })
	bus.Clear()

	bus.Publish(domain.Frame{Type: domain.EventUserOnline})
	assert.Equal(t, 0, calls)
}

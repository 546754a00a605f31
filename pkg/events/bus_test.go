package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var received []any
	bus.Subscribe("chat.response", func(event any) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
	})

	bus.Publish("chat.response", ChatResponseEvent{ConversationID: "c1"})
	bus.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1)
	assert.Equal(t, "c1", received[0].(ChatResponseEvent).ConversationID)
}

func TestBus_OrderedWithinTopic(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	var order []int
	bus.Subscribe("ordered", func(event any) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, event.(int))
	})

	for i := 0; i < 10; i++ {
		bus.Publish("ordered", i)
	}
	bus.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestBus_NoSubscribersIsNoOp(t *testing.T) {
	bus := NewEventBus()

	bus.Publish("nobody.listens", "dropped silently")
	bus.Shutdown()
}

func TestBus_HandlerPanicDoesNotKillWorker(t *testing.T) {
	bus := NewEventBus()

	var mu sync.Mutex
	delivered := 0
	bus.Subscribe("flaky", func(event any) {
		panic("boom")
	})
	bus.Subscribe("flaky", func(event any) {
		mu.Lock()
		defer mu.Unlock()
		delivered++
	})

	bus.Publish("flaky", struct{}{})
	bus.Publish("flaky", struct{}{})
	bus.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, delivered)
}

package events

import (
	"log"
	"sync"
)

const defaultTopicBuffer = 64

// EventHandler is a function that handles an event.
type EventHandler func(event any)

// Publisher allows publishing events.
type Publisher interface {
	Publish(topic string, event any)
}

// Subscriber allows subscribing to events.
type Subscriber interface {
	Subscribe(topic string, handler EventHandler)
}

// EventBus provides both publishing and subscribing.
type EventBus interface {
	Publisher
	Subscriber
}

// InMemoryBus implements EventBus with per-topic worker goroutines so
// delivery stays in publish order within a topic while publishers never
// block.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	workers     map[string]*topicWorker
	bufferSize  int
}

// NewEventBus creates a new event bus with the default buffer size.
func NewEventBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string][]EventHandler),
		workers:     make(map[string]*topicWorker),
		bufferSize:  defaultTopicBuffer,
	}
}

// Subscribe adds a handler for a topic.
func (b *InMemoryBus) Subscribe(topic string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish sends an event to all subscribers of the topic. Publishing is
// non-blocking: when the topic queue is full the event is dropped.
func (b *InMemoryBus) Publish(topic string, event any) {
	handlers := b.handlersFor(topic)
	if len(handlers) == 0 {
		return
	}

	worker := b.getOrCreateWorker(topic)
	select {
	case worker.ch <- envelope{event: event, handlers: handlers}:
	default:
		log.Printf("event bus queue full for topic %s; dropping event", topic)
	}
}

// Shutdown stops all topic workers after draining their queues. Primarily
// useful for tests.
func (b *InMemoryBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.workers {
		w.stop()
	}
}

func (b *InMemoryBus) handlersFor(topic string) []EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]EventHandler, len(b.subscribers[topic]))
	copy(handlers, b.subscribers[topic])
	return handlers
}

func (b *InMemoryBus) getOrCreateWorker(topic string) *topicWorker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if worker, ok := b.workers[topic]; ok {
		return worker
	}
	worker := newTopicWorker(b.bufferSize)
	b.workers[topic] = worker
	return worker
}

type envelope struct {
	event    any
	handlers []EventHandler
}

type topicWorker struct {
	ch       chan envelope
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newTopicWorker(buffer int) *topicWorker {
	w := &topicWorker{ch: make(chan envelope, buffer)}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *topicWorker) run() {
	defer w.wg.Done()
	for env := range w.ch {
		for _, handler := range env.handlers {
			deliver(handler, env.event)
		}
	}
}

func deliver(handler EventHandler, event any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panicked: %v", r)
		}
	}()
	handler(event)
}

func (w *topicWorker) stop() {
	w.stopOnce.Do(func() {
		close(w.ch)
		w.wg.Wait()
	})
}

// NoOpPublisher discards events; handy when a component does not care about
// telemetry (tests, one-shot CLI runs).
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(topic string, event any) {}

package events

import (
	"sync"
)

type EventType string

const (
	RegistryLoaded  EventType = "registry:loaded"
	SiteResolved    EventType = "site:resolved"
	DatabaseProbed  EventType = "database:probed"
	LogEntry        EventType = "log:entry"
	StatusCollected EventType = "status:collected"
)

type Event struct {
	Type    EventType
	Payload interface{}
}

type Handler func(Event)

type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

func (b *Bus) Subscribe(topic EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// SubscribeAll registers handler for every topic in topics.
func (b *Bus) SubscribeAll(handler Handler, topics ...EventType) {
	for _, topic := range topics {
		b.Subscribe(topic, handler)
	}
}

// Publish delivers the event to its handlers synchronously, in subscription order.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

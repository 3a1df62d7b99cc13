package event

import (
	"reflect"
	"sync"
)

// Bus is a synchronous typed event bus. Publish calls every handler
// subscribed to the event's type, in subscription order, on the caller's
// goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Publish delivers ev to the handlers of its type. Handlers may subscribe
// or publish further events; they see the handler list as it was when
// Publish started.
func Publish[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.RLock()
	handlers := b.handlers[t]
	b.mu.RUnlock()

	for _, h := range handlers {
		// Subscribe and Publish use the same type key.
		h.(func(T))(ev)
	}
}

// Subscribers returns the number of handlers for events of type T.
func Subscribers[T any](b *Bus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[reflect.TypeOf((*T)(nil)).Elem()])
}

package event

import (
	"reflect"
	"sync"
)

// envelope is one queued event with its static type.
type envelope struct {
	typ   reflect.Type
	event any
}

type handler struct {
	id uint64
	fn func(any)
}

// Bus is a double-buffered event bus. Emit appends to the back queue; Flush
// swaps the queues and delivers the previous frame's events in emit order,
// so an event emitted during frame N reaches handlers when frame N+1 starts.
// Events emitted by handlers during a Flush wait for the next one.
type Bus struct {
	mu       sync.Mutex // guards handlers
	front    []envelope
	back     []envelope
	handlers map[reflect.Type][]handler
	nextID   uint64
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]envelope, 0, 16),
		back:     make([]envelope, 0, 16),
		handlers: make(map[reflect.Type][]handler),
	}
}

// Emit queues event for the next Flush.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, envelope{typ: reflect.TypeFor[T](), event: event})
}

// Subscribe registers fn for events of type T and returns a function that
// removes it again.
func Subscribe[T any](b *Bus, fn func(T)) (unsubscribe func()) {
	t := reflect.TypeFor[T]()

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], handler{id: id, fn: func(ev any) { fn(ev.(T)) }})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := b.handlers[t]
		for i, h := range hs {
			if h.id == id {
				b.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// Pending returns the number of events waiting for the next Flush.
func (b *Bus) Pending() int { return len(b.back) }

// Flush delivers every event queued before the call and returns how many
// there were.
func (b *Bus) Flush() int {
	b.front, b.back = b.back, b.front[:0]
	for _, env := range b.front {
		for _, h := range b.subscribers(env.typ) {
			h.fn(env.event)
		}
	}
	n := len(b.front)
	clear(b.front)
	b.front = b.front[:0]
	return n
}

func (b *Bus) subscribers(t reflect.Type) []handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handlers[t]
}

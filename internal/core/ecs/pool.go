package ecs

import "fmt"

// Pool is a dense vector with an occupied prefix [0, Len()) and a possibly
// larger backing array. Removal swaps the last occupied element into the
// freed slot, so it is O(1) and does not preserve order. Rewind drops every
// occupied element but keeps the backing array for reuse.
//
// Pointers returned by At and Last stay valid until the next call that grows
// the pool.
type Pool[T any] struct {
	items []T
	top   int
	alloc Allocator
}

func NewPool[T any](alloc Allocator, capacity int) *Pool[T] {
	p := &Pool[T]{}
	p.init(alloc, capacity)
	return p
}

func (p *Pool[T]) init(alloc Allocator, capacity int) {
	if alloc == nil {
		alloc = DefaultAllocator
	}
	p.alloc = alloc
	if capacity > 0 {
		p.items = make([]T, capacity)
	}
}

// Len returns the number of occupied slots.
func (p *Pool[T]) Len() int { return p.top }

// Cap returns the number of allocated slots.
func (p *Pool[T]) Cap() int { return len(p.items) }

func (p *Pool[T]) IsEmpty() bool { return p.top == 0 }

// Push appends v to the occupied prefix, reusing an allocated slot when one
// is free, and returns its index.
func (p *Pool[T]) Push(v T) int {
	if p.top == len(p.items) {
		p.grow(p.top + 1)
	}
	p.items[p.top] = v
	p.top++
	return p.top - 1
}

// PushRange appends vs in order and returns the index of the first element.
// Slack capacity left behind by earlier removals or Rewind is consumed before
// the pool asks its allocator for more.
func (p *Pool[T]) PushRange(vs []T) int {
	first := p.top
	if len(vs) == 0 {
		return first
	}
	need := p.top + len(vs)
	if need > len(p.items) {
		p.grow(need)
	}
	copy(p.items[p.top:need], vs)
	p.top = need
	return first
}

// RemoveAt swap-removes the element at i.
func (p *Pool[T]) RemoveAt(i int) {
	if p.top == 0 {
		panic("ecs: remove from empty pool")
	}
	p.check(i)
	last := p.top - 1
	if i != last {
		p.items[i] = p.items[last]
	}
	var zero T
	p.items[last] = zero
	p.top = last
}

// Pop drops the last n occupied elements.
func (p *Pool[T]) Pop(n int) {
	if n < 0 || n > p.top {
		panic(fmt.Sprintf("ecs: pop %d elements from pool of %d", n, p.top))
	}
	clear(p.items[p.top-n : p.top])
	p.top -= n
}

// Rewind empties the pool without releasing its backing array.
func (p *Pool[T]) Rewind() {
	clear(p.items[:p.top])
	p.top = 0
}

// Reserve makes sure at least n slots are allocated.
func (p *Pool[T]) Reserve(n int) {
	if n > len(p.items) {
		p.grow(n)
	}
}

func (p *Pool[T]) At(i int) *T {
	p.check(i)
	return &p.items[i]
}

// Last returns the last occupied element.
func (p *Pool[T]) Last() *T {
	if p.top == 0 {
		panic("ecs: last of empty pool")
	}
	return &p.items[p.top-1]
}

// Slice exposes the occupied prefix. It aliases the pool's storage.
func (p *Pool[T]) Slice() []T {
	return p.items[:p.top]
}

func (p *Pool[T]) check(i int) {
	if i < 0 || i >= p.top {
		panic(fmt.Sprintf("ecs: index %d out of range [0, %d)", i, p.top))
	}
}

func (p *Pool[T]) grow(required int) {
	if p.alloc == nil {
		p.alloc = DefaultAllocator
	}
	n := p.alloc.Grow(len(p.items), required)
	if n < required {
		panic(fmt.Sprintf("ecs: allocator returned capacity %d, need %d", n, required))
	}
	items := make([]T, n)
	copy(items, p.items[:p.top])
	p.items = items
}

package ecs

// Allocator owns the growth policy of every pool in a world. Memory itself is
// managed by the Go runtime; containers ask the allocator how many slots to
// reserve whenever their occupied prefix would outgrow the backing array.
type Allocator interface {
	// Grow returns the new capacity for a pool holding current slots that
	// needs at least required slots. The result must be >= required.
	Grow(current, required int) int
}

// DoublingAllocator doubles capacity, never going below Min slots.
type DoublingAllocator struct {
	Min int
}

func (a DoublingAllocator) Grow(current, required int) int {
	n := current * 2
	if n < a.Min {
		n = a.Min
	}
	if n < required {
		n = required
	}
	return n
}

// DefaultAllocator is used when a world is created without WithAllocator.
var DefaultAllocator Allocator = DoublingAllocator{Min: 16}

// CountingAllocator wraps another allocator and records how often pools
// had to grow. Worlds expose the counters through Stats.
type CountingAllocator struct {
	Next  Allocator
	Grows int
	Slots int
}

func NewCountingAllocator(next Allocator) *CountingAllocator {
	if next == nil {
		next = DefaultAllocator
	}
	return &CountingAllocator{Next: next}
}

func (a *CountingAllocator) Grow(current, required int) int {
	n := a.Next.Grow(current, required)
	a.Grows++
	a.Slots += n - current
	return n
}

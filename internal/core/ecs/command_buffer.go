package ecs

import "fmt"

// CommandBuffer collects pending adds and removes of a single component type
// and applies them together on Commit. Systems use it to defer structural
// changes until they have finished iterating a query over T.
type CommandBuffer[T any] struct {
	m       *ComponentManager
	id      TypeID
	table   func() *Table[T]
	stamp   func(*T, Entity)
	adds    []T
	owners  []Entity
	removes []Entity
	seen    map[Entity]struct{}
	dropped map[Entity]struct{}
}

func NewCommandBuffer[T any, PT ComponentPtr[T]](m *ComponentManager) *CommandBuffer[T] {
	return &CommandBuffer[T]{
		m:     m,
		id:    TypeOf[T](),
		table: func() *Table[T] { return GetOrCreate[T, PT](m.storage) },
		stamp: func(v *T, e Entity) { PT(v).SetOwner(e) },
	}
}

// Reserve preallocates room for the given number of queued operations.
func (b *CommandBuffer[T]) Reserve(adds, removes int) {
	if cap(b.adds) < adds {
		grown := make([]T, len(b.adds), adds)
		copy(grown, b.adds)
		b.adds = grown
		owners := make([]Entity, len(b.owners), adds)
		copy(owners, b.owners)
		b.owners = owners
	}
	if cap(b.removes) < removes {
		grown := make([]Entity, len(b.removes), removes)
		copy(grown, b.removes)
		b.removes = grown
	}
}

// Add queues v to be attached to e.
func (b *CommandBuffer[T]) Add(e Entity, v T) {
	b.stamp(&v, e)
	b.adds = append(b.adds, v)
	b.owners = append(b.owners, e)
}

// Remove queues the removal of e's T component.
func (b *CommandBuffer[T]) Remove(e Entity) {
	b.removes = append(b.removes, e)
}

// Len returns the number of queued operations.
func (b *CommandBuffer[T]) Len() int { return len(b.adds) + len(b.removes) }

// Adds and Removes return the queue sizes.
func (b *CommandBuffer[T]) Adds() int    { return len(b.adds) }
func (b *CommandBuffer[T]) Removes() int { return len(b.removes) }

// Reset drops everything queued without applying it.
func (b *CommandBuffer[T]) Reset() {
	clear(b.adds)
	b.adds = b.adds[:0]
	b.owners = b.owners[:0]
	b.removes = b.removes[:0]
}

// Commit applies the queued additions as one bulk insert, then the queued
// removals one by one, then fires a single change notification for T. An
// empty buffer commits nothing and notifies nobody. Every queued operation
// is validated before the table is touched.
func (b *CommandBuffer[T]) Commit() {
	if b.Len() == 0 {
		return
	}
	lookup := b.m.lookup
	if b.seen == nil {
		b.seen = make(map[Entity]struct{}, len(b.owners))
	}
	clear(b.seen)
	for _, e := range b.owners {
		if !lookup.IsTracked(e) {
			panic(fmt.Sprintf("ecs: command buffer adds %s to untracked %s", TypeName(b.id), e))
		}
		if lookup.Has(e, b.id) {
			panic(fmt.Sprintf("ecs: %s already has a %s component", e, TypeName(b.id)))
		}
		if _, dup := b.seen[e]; dup {
			panic(fmt.Sprintf("ecs: command buffer adds %s to %s twice", TypeName(b.id), e))
		}
		b.seen[e] = struct{}{}
	}
	if b.dropped == nil {
		b.dropped = make(map[Entity]struct{}, len(b.removes))
	}
	clear(b.dropped)
	for _, e := range b.removes {
		if !lookup.IsTracked(e) {
			panic(fmt.Sprintf("ecs: command buffer removes %s from untracked %s", TypeName(b.id), e))
		}
		if _, queued := b.seen[e]; !queued && !lookup.Has(e, b.id) {
			panic(fmt.Sprintf("ecs: command buffer removes missing %s from %s", TypeName(b.id), e))
		}
		if _, dup := b.dropped[e]; dup {
			panic(fmt.Sprintf("ecs: command buffer removes %s from %s twice", TypeName(b.id), e))
		}
		b.dropped[e] = struct{}{}
	}

	table := b.table()
	if len(b.adds) > 0 {
		first := table.AddRange(b.adds)
		for k, e := range b.owners {
			lookup.Add(e, b.id, first+k)
		}
	}
	for _, e := range b.removes {
		index := lookup.IndexOf(e, b.id)
		lookup.Remove(e, b.id)
		b.m.detach(table, index)
	}
	b.Reset()
	b.m.notify(b.id)
}

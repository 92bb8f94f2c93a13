package ecs

import "fmt"

// Entity is an opaque 64-bit handle. Zero is never handed out.
type Entity uint64

// NilEntity is the reserved invalid entity.
const NilEntity Entity = 0

func (e Entity) IsZero() bool { return e == NilEntity }

func (e Entity) String() string { return fmt.Sprintf("entity(%d)", uint64(e)) }

// EntityManager mints entity ids and owns cascading deletion. Ids come from a
// monotonic counter starting at 1 and are never recycled, so a stale handle
// can never alias a newer entity.
type EntityManager struct {
	next         Entity
	lookup       *ComponentLookup
	components   *ComponentManager
	destroyQueue []Entity
	queued       map[Entity]struct{}
}

func newEntityManager(lookup *ComponentLookup, components *ComponentManager) *EntityManager {
	return &EntityManager{
		next:         1,
		lookup:       lookup,
		components:   components,
		destroyQueue: make([]Entity, 0, 64),
		queued:       make(map[Entity]struct{}, 64),
	}
}

// Create mints a new entity with an empty component set.
func (m *EntityManager) Create() Entity {
	e := m.next
	m.next++
	m.lookup.Track(e)
	return e
}

// CreateN mints n entities.
func (m *EntityManager) CreateN(n int) []Entity {
	out := make([]Entity, n)
	for i := range out {
		out[i] = m.Create()
	}
	return out
}

func (m *EntityManager) Alive(e Entity) bool {
	return m.lookup.IsTracked(e)
}

// Count returns the number of live entities.
func (m *EntityManager) Count() int {
	return m.lookup.Len()
}

// Minted returns how many ids have been handed out so far.
func (m *EntityManager) Minted() uint64 {
	return uint64(m.next - 1)
}

// Delete removes every component e owns, one type at a time, then forgets e.
// Each removal goes through the same swap-remove and lookup fix-up as
// ComponentManager.RemoveComponent and fires one notification for its type.
func (m *EntityManager) Delete(e Entity) {
	set := m.lookup.mustSet(e)
	for set.Len() > 0 {
		entry := *set.Last()
		set.Pop(1)
		table, ok := m.components.storage.Erased(entry.Type)
		if !ok {
			panic(fmt.Sprintf("ecs: %s references unregistered type %s", e, TypeName(entry.Type)))
		}
		m.components.detach(table, entry.Index)
		m.components.notify(entry.Type)
	}
	m.lookup.Untrack(e)
}

// MarkForDestruction queues e for deletion at the next FlushDestroyQueue.
// Queuing the same entity twice is harmless.
func (m *EntityManager) MarkForDestruction(e Entity) {
	if _, ok := m.queued[e]; ok {
		return
	}
	m.queued[e] = struct{}{}
	m.destroyQueue = append(m.destroyQueue, e)
}

// Pending returns the number of entities waiting in the destroy queue.
func (m *EntityManager) Pending() int { return len(m.destroyQueue) }

// FlushDestroyQueue deletes every queued entity in queue order and returns
// how many were deleted. Entities already deleted directly are skipped.
func (m *EntityManager) FlushDestroyQueue() int {
	n := 0
	for _, e := range m.destroyQueue {
		if m.lookup.IsTracked(e) {
			m.Delete(e)
			n++
		}
	}
	m.destroyQueue = m.destroyQueue[:0]
	clear(m.queued)
	return n
}

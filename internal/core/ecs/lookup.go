package ecs

import "fmt"

// LookupEntry records where one of an entity's components lives.
type LookupEntry struct {
	Type  TypeID
	Index int
}

// ComponentLookup is the per-entity directory of component locations. Each
// entity's entries sit in their own swap-remove pool; pools of untracked
// entities are rewound and handed to the next tracked entity.
type ComponentLookup struct {
	sets  map[Entity]*Pool[LookupEntry]
	free  []*Pool[LookupEntry]
	alloc Allocator
}

func NewComponentLookup(alloc Allocator, capacity int) *ComponentLookup {
	if alloc == nil {
		alloc = DefaultAllocator
	}
	return &ComponentLookup{
		sets:  make(map[Entity]*Pool[LookupEntry], capacity),
		alloc: alloc,
	}
}

// Track registers e with no components. Tracking a live entity is a no-op.
func (l *ComponentLookup) Track(e Entity) {
	if e.IsZero() {
		panic("ecs: cannot track the nil entity")
	}
	if _, ok := l.sets[e]; ok {
		return
	}
	var set *Pool[LookupEntry]
	if n := len(l.free); n > 0 {
		set = l.free[n-1]
		l.free = l.free[:n-1]
	} else {
		set = NewPool[LookupEntry](l.alloc, 0)
	}
	l.sets[e] = set
}

// Untrack forgets e and recycles its entry pool.
func (l *ComponentLookup) Untrack(e Entity) {
	set := l.mustSet(e)
	set.Rewind()
	l.free = append(l.free, set)
	delete(l.sets, e)
}

func (l *ComponentLookup) IsTracked(e Entity) bool {
	_, ok := l.sets[e]
	return ok
}

// Len returns the number of tracked entities.
func (l *ComponentLookup) Len() int { return len(l.sets) }

// Has reports whether e owns a component of type id. Untracked entities and
// unknown types report false.
func (l *ComponentLookup) Has(e Entity, id TypeID) bool {
	set, ok := l.sets[e]
	if !ok {
		return false
	}
	return find(set, id) >= 0
}

// IndexOf returns the slot of e's id component and panics if there is none.
func (l *ComponentLookup) IndexOf(e Entity, id TypeID) int {
	set := l.mustSet(e)
	j := find(set, id)
	if j < 0 {
		panic(fmt.Sprintf("ecs: %s has no %s component", e, TypeName(id)))
	}
	return set.At(j).Index
}

// TryIndexOf is IndexOf without the assertion.
func (l *ComponentLookup) TryIndexOf(e Entity, id TypeID) (int, bool) {
	set, ok := l.sets[e]
	if !ok {
		return 0, false
	}
	j := find(set, id)
	if j < 0 {
		return 0, false
	}
	return set.At(j).Index, true
}

// Add records that e's id component lives at index. Adding a type e already
// owns panics.
func (l *ComponentLookup) Add(e Entity, id TypeID, index int) {
	set := l.mustSet(e)
	if find(set, id) >= 0 {
		panic(fmt.Sprintf("ecs: %s already has a %s component", e, TypeName(id)))
	}
	set.Push(LookupEntry{Type: id, Index: index})
}

// Remove drops e's entry for id.
func (l *ComponentLookup) Remove(e Entity, id TypeID) {
	set := l.mustSet(e)
	j := find(set, id)
	if j < 0 {
		panic(fmt.Sprintf("ecs: %s has no %s component", e, TypeName(id)))
	}
	set.RemoveAt(j)
}

// SetIndex moves e's id entry to index.
func (l *ComponentLookup) SetIndex(e Entity, id TypeID, index int) {
	set := l.mustSet(e)
	j := find(set, id)
	if j < 0 {
		panic(fmt.Sprintf("ecs: %s has no %s component", e, TypeName(id)))
	}
	set.At(j).Index = index
}

// Entries returns a copy of e's entries in storage order.
func (l *ComponentLookup) Entries(e Entity) []LookupEntry {
	set := l.mustSet(e)
	out := make([]LookupEntry, set.Len())
	copy(out, set.Slice())
	return out
}

// Count returns how many components e owns.
func (l *ComponentLookup) Count(e Entity) int {
	return l.mustSet(e).Len()
}

// Each calls fn for every tracked entity in unspecified order.
func (l *ComponentLookup) Each(fn func(Entity)) {
	for e := range l.sets {
		fn(e)
	}
}

func (l *ComponentLookup) mustSet(e Entity) *Pool[LookupEntry] {
	set, ok := l.sets[e]
	if !ok {
		panic(fmt.Sprintf("ecs: %s is not tracked", e))
	}
	return set
}

func find(set *Pool[LookupEntry], id TypeID) int {
	for j, entry := range set.Slice() {
		if entry.Type == id {
			return j
		}
	}
	return -1
}

package ecs

import "slices"

// ChangeHandler is told about every structural change, once per mutation
// (or once per committed command buffer).
type ChangeHandler interface {
	OnStructuralChange(id TypeID)
}

// ChangeHandlerFunc adapts a function to ChangeHandler.
type ChangeHandlerFunc func(id TypeID)

func (f ChangeHandlerFunc) OnStructuralChange(id TypeID) { f(id) }

// StructuralChangeTracker accumulates which tables became empty or non-empty
// since the last Reset. A type lives in at most one of the two sets; its
// latest transition wins.
type StructuralChangeTracker struct {
	empty    map[TypeID]struct{}
	nonEmpty map[TypeID]struct{}
}

func NewStructuralChangeTracker() *StructuralChangeTracker {
	return &StructuralChangeTracker{
		empty:    make(map[TypeID]struct{}, 16),
		nonEmpty: make(map[TypeID]struct{}, 16),
	}
}

// Record notes that id's table is now non-empty (or empty).
func (t *StructuralChangeTracker) Record(id TypeID, nonEmpty bool) {
	if nonEmpty {
		delete(t.empty, id)
		t.nonEmpty[id] = struct{}{}
		return
	}
	delete(t.nonEmpty, id)
	t.empty[id] = struct{}{}
}

func (t *StructuralChangeTracker) HasChanges() bool {
	return len(t.empty) > 0 || len(t.nonEmpty) > 0
}

// BecameEmpty returns the types whose tables emptied, sorted by id.
func (t *StructuralChangeTracker) BecameEmpty() []TypeID { return sortedIDs(t.empty) }

// BecameNonEmpty returns the types whose tables filled, sorted by id.
func (t *StructuralChangeTracker) BecameNonEmpty() []TypeID { return sortedIDs(t.nonEmpty) }

func (t *StructuralChangeTracker) Reset() {
	clear(t.empty)
	clear(t.nonEmpty)
}

func sortedIDs(set map[TypeID]struct{}) []TypeID {
	out := make([]TypeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// StructuralChangeHandler is the world's ChangeHandler. It rebuilds dependent
// queries synchronously and records empty/non-empty transitions in the
// tracker, which the system world drains once per frame.
type StructuralChangeHandler struct {
	storage   *ComponentStorage
	queries   *QueryBuilder
	tracker   *StructuralChangeTracker
	known     []bool
	listeners []func(TypeID)
}

func NewStructuralChangeHandler(storage *ComponentStorage, queries *QueryBuilder, tracker *StructuralChangeTracker) *StructuralChangeHandler {
	return &StructuralChangeHandler{
		storage: storage,
		queries: queries,
		tracker: tracker,
	}
}

// Subscribe registers fn to run after every handled change.
func (h *StructuralChangeHandler) Subscribe(fn func(TypeID)) {
	h.listeners = append(h.listeners, fn)
}

func (h *StructuralChangeHandler) OnStructuralChange(id TypeID) {
	if h.queries != nil {
		h.queries.Invalidate(id)
	}
	nonEmpty := h.storage.HasAny(id)
	if h.transition(id, nonEmpty) {
		h.tracker.Record(id, nonEmpty)
	}
	for _, fn := range h.listeners {
		fn(id)
	}
}

// transition updates the last seen state of id and reports whether it
// changed. Tables start out empty.
func (h *StructuralChangeHandler) transition(id TypeID, nonEmpty bool) bool {
	for int(id) >= len(h.known) {
		h.known = append(h.known, false)
	}
	if h.known[id] == nonEmpty {
		return false
	}
	h.known[id] = nonEmpty
	return true
}

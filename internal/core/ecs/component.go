package ecs

// Component is implemented by every component type through an embedded
// ComponentBase. The owner back-reference lets a table tell which entity's
// lookup entry must move after a swap-remove without a reverse index.
type Component interface {
	Owner() Entity
	SetOwner(Entity)
	IsActive() bool
	SetActive(bool)
}

// ComponentPtr constrains generic APIs to component value types whose pointer
// implements Component, so tables can hold values unboxed.
type ComponentPtr[T any] interface {
	*T
	Component
}

// ComponentBase carries the owner and active flag. Components are active
// unless explicitly deactivated.
type ComponentBase struct {
	owner    Entity
	inactive bool
}

func (c *ComponentBase) Owner() Entity     { return c.owner }
func (c *ComponentBase) SetOwner(e Entity) { c.owner = e }
func (c *ComponentBase) IsActive() bool    { return !c.inactive }
func (c *ComponentBase) SetActive(on bool) { c.inactive = !on }

// Table is the dense per-type component store.
type Table[T any] struct {
	pool    Pool[T]
	id      TypeID
	ownerOf func(*T) Entity
	active  func(*T) bool
}

func newTable[T any, PT ComponentPtr[T]](id TypeID, alloc Allocator, capacity int) *Table[T] {
	t := &Table[T]{
		id:      id,
		ownerOf: func(v *T) Entity { return PT(v).Owner() },
		active:  func(v *T) bool { return PT(v).IsActive() },
	}
	t.pool.init(alloc, capacity)
	return t
}

func (t *Table[T]) TypeID() TypeID { return t.id }
func (t *Table[T]) Len() int       { return t.pool.Len() }
func (t *Table[T]) Cap() int       { return t.pool.Cap() }
func (t *Table[T]) IsEmpty() bool  { return t.pool.IsEmpty() }

// Add appends v and returns its slot. Callers stamp the owner first.
func (t *Table[T]) Add(v T) int { return t.pool.Push(v) }

// AddRange appends vs in one step and returns the first slot.
func (t *Table[T]) AddRange(vs []T) int { return t.pool.PushRange(vs) }

// RemoveAt swap-removes slot i. Use TopOwner before the call to learn which
// entity, if any, is relocated into i.
func (t *Table[T]) RemoveAt(i int) { t.pool.RemoveAt(i) }

// EraseAt is RemoveAt for type-erased callers.
func (t *Table[T]) EraseAt(i int) { t.pool.RemoveAt(i) }

// TopOwner returns the owner of the last occupied slot.
func (t *Table[T]) TopOwner() Entity { return t.ownerOf(t.pool.Last()) }

func (t *Table[T]) OwnerAt(i int) Entity { return t.ownerOf(t.pool.At(i)) }

func (t *Table[T]) ActiveAt(i int) bool { return t.active(t.pool.At(i)) }

// Get returns a pointer to slot i. It is invalidated by any structural
// change to this table.
func (t *Table[T]) Get(i int) *T { return t.pool.At(i) }

// Value returns a copy of slot i as an interface value.
func (t *Table[T]) Value(i int) any { return *t.pool.At(i) }

// Values exposes the occupied slots.
func (t *Table[T]) Values() []T { return t.pool.Slice() }

// Rewind empties the table but keeps its capacity. It does not touch the
// lookup; World.Clear is the only caller that keeps both in sync.
func (t *Table[T]) Rewind() { t.pool.Rewind() }

// Reserve preallocates n slots.
func (t *Table[T]) Reserve(n int) { t.pool.Reserve(n) }

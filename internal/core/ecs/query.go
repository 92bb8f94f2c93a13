package ecs

// cachedQuery is what the builder keeps for every built query.
type cachedQuery interface {
	Info() QueryInfo
	IsDependentOn(id TypeID) bool
	Recreate()
}

type queryBase struct {
	info     QueryInfo
	lookup   *ComponentLookup
	rebuilds int
}

func (q *queryBase) Info() QueryInfo { return q.info }

func (q *queryBase) IsDependentOn(id TypeID) bool { return q.info.DependsOn(id) }

// Rebuilds returns how many times the query has been recreated.
func (q *queryBase) Rebuilds() int { return q.rebuilds }

func (q *queryBase) matches(e Entity) bool {
	for _, id := range q.info.include {
		if !q.lookup.Has(e, id) {
			return false
		}
	}
	for _, id := range q.info.exclude {
		if q.lookup.Has(e, id) {
			return false
		}
	}
	return true
}

// Query1 lists the slots of A's table whose owners pass the filter.
type Query1[A any] struct {
	queryBase
	table   *Table[A]
	indices []int
}

// Recreate rescans A's occupied range and replaces the index list.
func (q *Query1[A]) Recreate() {
	q.indices = q.indices[:0]
	for i := 0; i < q.table.Len(); i++ {
		if q.matches(q.table.OwnerAt(i)) {
			q.indices = append(q.indices, i)
		}
	}
	q.rebuilds++
}

func (q *Query1[A]) Len() int            { return len(q.indices) }
func (q *Query1[A]) Index(i int) int     { return q.indices[i] }
func (q *Query1[A]) Indices() []int      { return q.indices }
func (q *Query1[A]) Table() *Table[A]    { return q.table }
func (q *Query1[A]) Entity(i int) Entity { return q.table.OwnerAt(q.indices[i]) }
func (q *Query1[A]) Get(i int) *A        { return q.table.Get(q.indices[i]) }

// Each visits every match in slot order. fn must not change A's table
// structurally; queue such changes in a CommandBuffer instead.
func (q *Query1[A]) Each(fn func(e Entity, a *A)) {
	for _, i := range q.indices {
		fn(q.table.OwnerAt(i), q.table.Get(i))
	}
}

// Row2 holds the co-located slots of one match in a two-type query.
type Row2 struct {
	Entity Entity
	A, B   int
}

// Query2 joins A's table with B's through the lookup.
type Query2[A, B any] struct {
	queryBase
	ta   *Table[A]
	tb   *Table[B]
	rows []Row2
}

func (q *Query2[A, B]) Recreate() {
	q.rows = q.rows[:0]
	idB := q.tb.TypeID()
	for i := 0; i < q.ta.Len(); i++ {
		e := q.ta.OwnerAt(i)
		if !q.matches(e) {
			continue
		}
		j, ok := q.lookup.TryIndexOf(e, idB)
		if !ok {
			continue
		}
		q.rows = append(q.rows, Row2{Entity: e, A: i, B: j})
	}
	q.rebuilds++
}

func (q *Query2[A, B]) Len() int            { return len(q.rows) }
func (q *Query2[A, B]) Row(i int) Row2      { return q.rows[i] }
func (q *Query2[A, B]) Entity(i int) Entity { return q.rows[i].Entity }

func (q *Query2[A, B]) Get(i int) (*A, *B) {
	r := q.rows[i]
	return q.ta.Get(r.A), q.tb.Get(r.B)
}

func (q *Query2[A, B]) Each(fn func(e Entity, a *A, b *B)) {
	for _, r := range q.rows {
		fn(r.Entity, q.ta.Get(r.A), q.tb.Get(r.B))
	}
}

// Row3 holds the co-located slots of one match in a three-type query.
type Row3 struct {
	Entity  Entity
	A, B, C int
}

// Query3 joins three tables, driven by A's.
type Query3[A, B, C any] struct {
	queryBase
	ta   *Table[A]
	tb   *Table[B]
	tc   *Table[C]
	rows []Row3
}

func (q *Query3[A, B, C]) Recreate() {
	q.rows = q.rows[:0]
	idB, idC := q.tb.TypeID(), q.tc.TypeID()
	for i := 0; i < q.ta.Len(); i++ {
		e := q.ta.OwnerAt(i)
		if !q.matches(e) {
			continue
		}
		j, ok := q.lookup.TryIndexOf(e, idB)
		if !ok {
			continue
		}
		k, ok := q.lookup.TryIndexOf(e, idC)
		if !ok {
			continue
		}
		q.rows = append(q.rows, Row3{Entity: e, A: i, B: j, C: k})
	}
	q.rebuilds++
}

func (q *Query3[A, B, C]) Len() int            { return len(q.rows) }
func (q *Query3[A, B, C]) Row(i int) Row3      { return q.rows[i] }
func (q *Query3[A, B, C]) Entity(i int) Entity { return q.rows[i].Entity }

func (q *Query3[A, B, C]) Get(i int) (*A, *B, *C) {
	r := q.rows[i]
	return q.ta.Get(r.A), q.tb.Get(r.B), q.tc.Get(r.C)
}

func (q *Query3[A, B, C]) Each(fn func(e Entity, a *A, b *B, c *C)) {
	for _, r := range q.rows {
		fn(r.Entity, q.ta.Get(r.A), q.tb.Get(r.B), q.tc.Get(r.C))
	}
}

// SharedQuery1 has Query1's predicate but materializes owner entities
// instead of slots. Several systems can share the entity view and resolve
// any other component through the ComponentManager.
type SharedQuery1[A any] struct {
	queryBase
	table    *Table[A]
	entities []Entity
	members  map[Entity]struct{}
}

func (q *SharedQuery1[A]) Recreate() {
	q.entities = q.entities[:0]
	clear(q.members)
	for i := 0; i < q.table.Len(); i++ {
		e := q.table.OwnerAt(i)
		if q.matches(e) {
			q.entities = append(q.entities, e)
			q.members[e] = struct{}{}
		}
	}
	q.rebuilds++
}

func (q *SharedQuery1[A]) Len() int            { return len(q.entities) }
func (q *SharedQuery1[A]) Entity(i int) Entity { return q.entities[i] }
func (q *SharedQuery1[A]) Entities() []Entity  { return q.entities }

// Contains reports whether e currently matches.
func (q *SharedQuery1[A]) Contains(e Entity) bool {
	_, ok := q.members[e]
	return ok
}

package ecs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuery_ConcreteScenario(t *testing.T) {
	w := NewWorld()
	m := w.Components()

	e1 := w.CreateEntity()
	AddComponent(m, e1, Position{})
	q := BuildQuery1[Position](w.Queries(), With[Velocity](NewQueryInfo()))
	require.Equal(t, 0, q.Len())

	AddComponent(m, e1, Velocity{})
	require.Equal(t, 1, q.Len())
	require.Equal(t, e1, q.Entity(0))

	w.DeleteEntity(e1)
	require.Equal(t, 0, q.Len())
}

func TestQuery_IncludeExcludeMatchesFullScan(t *testing.T) {
	w := NewWorld()
	m := w.Components()
	rng := rand.New(rand.NewSource(42))

	q := BuildQuery1[Position](w.Queries(), Without[Frozen](With[Health](NewQueryInfo())))

	var live []Entity
	for step := 0; step < 400; step++ {
		switch op := rng.Intn(5); {
		case op == 0 || len(live) == 0:
			e := w.CreateEntity()
			live = append(live, e)
			AddComponent(m, e, Position{X: float64(e)})
		case op == 1:
			e := live[rng.Intn(len(live))]
			if !HasComponent[Health](m, e) {
				AddComponent(m, e, Health{HP: 1})
			} else {
				RemoveComponent[Health](m, e)
			}
		case op == 2:
			e := live[rng.Intn(len(live))]
			if !HasComponent[Frozen](m, e) {
				AddComponent(m, e, Frozen{})
			} else {
				RemoveComponent[Frozen](m, e)
			}
		case op == 3:
			k := rng.Intn(len(live))
			w.DeleteEntity(live[k])
			live = append(live[:k], live[k+1:]...)
		default:
			e := live[rng.Intn(len(live))]
			if HasComponent[Position](m, e) {
				RemoveComponent[Position](m, e)
			} else {
				AddComponent(m, e, Position{})
			}
		}

		table := GetAsserted[Position](w.Storage())
		var want []int
		for i := 0; i < table.Len(); i++ {
			owner := table.OwnerAt(i)
			if HasComponent[Health](m, owner) && !HasComponent[Frozen](m, owner) {
				want = append(want, i)
			}
		}
		require.Equal(t, len(want), q.Len(), "step %d", step)
		if len(want) > 0 {
			require.Equal(t, want, q.Indices(), "step %d", step)
		}
	}
	requireConsistent(t, w)
}

func TestQuery_UnrelatedChangeDoesNotRebuild(t *testing.T) {
	w := NewWorld()
	m := w.Components()
	e := w.CreateEntity()
	AddComponent(m, e, Position{})

	q := BuildQuery1[Position](w.Queries(), Without[Frozen](NewQueryInfo()))
	rebuilds := q.Rebuilds()
	indices := append([]int(nil), q.Indices()...)

	AddComponent(m, e, Unused{})
	AddComponent(m, w.CreateEntity(), Velocity{})
	require.Equal(t, rebuilds, q.Rebuilds())
	require.Equal(t, indices, q.Indices())

	AddComponent(m, e, Frozen{})
	require.Equal(t, rebuilds+1, q.Rebuilds())
	require.Equal(t, 0, q.Len())
}

func TestQueryBuilder_CachesBySetEquality(t *testing.T) {
	w := NewWorld()
	b := w.Queries()

	info1 := NewQueryInfo().Include(TypeOf[Health](), TypeOf[Velocity]()).Exclude(TypeOf[Frozen]())
	info2 := NewQueryInfo().Include(TypeOf[Velocity]()).Include(TypeOf[Health](), TypeOf[Health]()).Exclude(TypeOf[Frozen]())

	q1 := BuildQuery1[Position](b, info1)
	q2 := BuildQuery1[Position](b, info2)
	require.Same(t, q1, q2)
	require.Equal(t, 1, b.Len())

	q3 := BuildQuery1[Position](b, NewQueryInfo().Include(TypeOf[Health]()))
	require.NotSame(t, q1, q3)

	s := BuildSharedQuery1[Position](b, info1)
	require.NotNil(t, s)
	require.Equal(t, 3, b.Len(), "shared and plain queries are cached separately")
}

func TestQueryInfo_HashSeparatesSections(t *testing.T) {
	a, h := TypeOf[Position](), TypeOf[Health]()

	inc := NewQueryInfo().Include(a, h)
	exc := NewQueryInfo().Include(a).Exclude(h)
	require.NotEqual(t, inc.Hash(), exc.Hash())
	require.False(t, inc.Equal(exc))

	require.Equal(t, NewQueryInfo().Include(h, a).Hash(), inc.Hash())
	require.True(t, inc.DependsOn(h))
	require.False(t, inc.DependsOn(TypeOf[Unused]()))
}

func TestQuery2_ResolvesSecondaryIndices(t *testing.T) {
	w := NewWorld()
	m := w.Components()

	es := w.Entities().CreateN(5)
	for i, e := range es {
		AddComponent(m, e, Position{X: float64(i)})
	}
	// Insert velocities in reverse so slots differ between tables.
	for i := len(es) - 1; i >= 0; i-- {
		if i%2 == 0 {
			AddComponent(m, es[i], Velocity{DX: float64(i) * 10})
		}
	}

	q := BuildQuery2[Position, Velocity](w.Queries(), NewQueryInfo())
	require.Equal(t, 3, q.Len())
	q.Each(func(e Entity, p *Position, v *Velocity) {
		require.Equal(t, p.X*10, v.DX)
		require.Equal(t, e, p.Owner())
		require.Equal(t, e, v.Owner())
	})

	RemoveComponent[Velocity](m, es[4])
	require.Equal(t, 2, q.Len())
	for i := 0; i < q.Len(); i++ {
		p, v := q.Get(i)
		require.Equal(t, p.X*10, v.DX)
		require.Equal(t, q.Entity(i), q.Row(i).Entity)
	}
}

func TestQuery3_JoinsThreeTables(t *testing.T) {
	w := NewWorld()
	m := w.Components()

	full := w.CreateEntity()
	AddComponent(m, full, Position{X: 1})
	AddComponent(m, full, Velocity{DX: 2})
	AddComponent(m, full, Health{HP: 3})

	partial := w.CreateEntity()
	AddComponent(m, partial, Position{})
	AddComponent(m, partial, Health{})

	q := BuildQuery3[Position, Velocity, Health](w.Queries(), NewQueryInfo())
	require.Equal(t, 1, q.Len())
	p, v, h := q.Get(0)
	require.Equal(t, 1.0, p.X)
	require.Equal(t, 2.0, v.DX)
	require.Equal(t, 3, h.HP)
	require.Equal(t, full, q.Entity(0))

	AddComponent(m, partial, Velocity{})
	require.Equal(t, 2, q.Len())
	count := 0
	q.Each(func(Entity, *Position, *Velocity, *Health) { count++ })
	require.Equal(t, 2, count)
	require.Equal(t, partial, q.Row(1).Entity)
}

func TestSharedQuery1_TracksEntities(t *testing.T) {
	w := NewWorld()
	m := w.Components()
	b := w.Queries()

	q := BuildSharedQuery1[Health](b, Without[Frozen](NewQueryInfo()))
	e1, e2 := w.CreateEntity(), w.CreateEntity()
	AddComponent(m, e1, Health{})
	AddComponent(m, e2, Health{})
	require.ElementsMatch(t, []Entity{e1, e2}, q.Entities())
	require.True(t, q.Contains(e1))

	AddComponent(m, e1, Frozen{})
	require.False(t, q.Contains(e1))
	require.Equal(t, 1, q.Len())
	require.Equal(t, e2, q.Entity(0))
}

func TestQuery_BuildBeforeTypeExists(t *testing.T) {
	w := NewWorld()
	q := BuildQuery1[Unused](w.Queries(), NewQueryInfo())
	require.Equal(t, 0, q.Len())
	require.True(t, w.Storage().IsRegistered(TypeOf[Unused]()), "building a query registers its target table")
	require.False(t, w.Storage().HasAny(TypeOf[Unused]()))
}

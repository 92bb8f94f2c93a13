package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type Position struct {
	ComponentBase
	X, Y float64
}

type Velocity struct {
	ComponentBase
	DX, DY float64
}

type Health struct {
	ComponentBase
	HP int
}

type Frozen struct {
	ComponentBase
}

type Unused struct {
	ComponentBase
}

// requireConsistent checks both directions of the storage/lookup invariant:
// every lookup entry points at a slot owned by its entity, and every
// occupied slot is referenced by its owner's entry.
func requireConsistent(t *testing.T, w *World) {
	t.Helper()
	w.Lookup().Each(func(e Entity) {
		for _, entry := range w.Lookup().Entries(e) {
			table, ok := w.Storage().Erased(entry.Type)
			require.True(t, ok, "entry for unregistered type %s", TypeName(entry.Type))
			require.Less(t, entry.Index, table.Len())
			require.Equal(t, e, table.OwnerAt(entry.Index))
		}
	})
	for _, id := range w.Storage().Types() {
		table, _ := w.Storage().Erased(id)
		for i := 0; i < table.Len(); i++ {
			owner := table.OwnerAt(i)
			index, ok := w.Lookup().TryIndexOf(owner, id)
			require.True(t, ok, "slot %d of %s has no lookup entry", i, TypeName(id))
			require.Equal(t, i, index)
		}
	}
}

// countNotifications subscribes to the world's change handler and counts
// notifications per type.
func countNotifications(w *World) map[TypeID]int {
	counts := make(map[TypeID]int)
	w.Handler().Subscribe(func(id TypeID) { counts[id]++ })
	return counts
}

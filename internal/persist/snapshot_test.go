package persist

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

type Position struct {
	ecs.ComponentBase
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Label struct {
	ecs.ComponentBase
	Text string `json:"text"`
}

func populate(t *testing.T) (*ecs.World, []ecs.Entity) {
	t.Helper()
	w := ecs.NewWorld()
	cm := w.Components()
	a, b := w.CreateEntity(), w.CreateEntity()
	ecs.AddComponent(cm, a, Position{X: 1, Y: 2})
	ecs.AddComponent(cm, b, Position{X: 3, Y: 4})
	ecs.AddComponent(cm, b, Label{Text: "beta"}).SetActive(false)
	return w, []ecs.Entity{a, b}
}

func TestBuildSnapshot(t *testing.T) {
	w, ents := populate(t)

	snap, err := BuildSnapshot(w.ID(), 42, w.Snapshot())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, snap.ID)
	require.Equal(t, w.ID(), snap.WorldID)
	require.Equal(t, uint64(42), snap.Frame)
	require.Equal(t, 2, snap.Entities)
	require.Len(t, snap.Components, 3)

	byType := map[string][]ComponentRow{}
	for _, row := range snap.Components {
		byType[row.TypeName] = append(byType[row.TypeName], row)
	}
	pos := byType["persist.Position"]
	require.Len(t, pos, 2)
	require.Equal(t, ents[0], pos[0].Entity)
	require.Equal(t, 0, pos[0].Slot)
	require.JSONEq(t, `{"x":1,"y":2}`, string(pos[0].Data))
	require.True(t, pos[0].Active)

	label := byType["persist.Label"]
	require.Len(t, label, 1)
	require.Equal(t, ents[1], label[0].Entity)
	require.False(t, label[0].Active)
	require.JSONEq(t, `{"text":"beta"}`, string(label[0].Data))
}

func TestBuildSnapshotOfEmptyWorld(t *testing.T) {
	snap, err := BuildSnapshot(uuid.New(), 0, nil)
	require.NoError(t, err)
	require.Zero(t, snap.Entities)
	require.Empty(t, snap.Components)
}

func TestBuildSnapshotRejectsUnencodableValue(t *testing.T) {
	_, err := BuildSnapshot(uuid.New(), 1, []ecs.ComponentRecord{{
		Entity: 1,
		Name:   "persist.Broken",
		Value:  func() {},
	}})
	require.ErrorContains(t, err, "encode persist.Broken of entity(1)")
}

func TestRestoreRoundTrip(t *testing.T) {
	src, ents := populate(t)
	snap, err := BuildSnapshot(src.ID(), 7, src.Snapshot())
	require.NoError(t, err)

	dec := NewDecoders()
	RegisterDecoder[Position](dec)
	RegisterDecoder[Label](dec)

	dst := ecs.NewWorld()
	dst.CreateEntity() // shift ids so remapping is observable
	remap, err := dec.Restore(dst, snap.Components)
	require.NoError(t, err)
	require.Len(t, remap, 2)
	require.NotEqual(t, ents[0], remap[ents[0]])

	cm := dst.Components()
	a, b := remap[ents[0]], remap[ents[1]]
	require.Equal(t, 1.0, ecs.GetComponent[Position](cm, a).X)
	require.Equal(t, 4.0, ecs.GetComponent[Position](cm, b).Y)
	require.Equal(t, "beta", ecs.GetComponent[Label](cm, b).Text)
	require.False(t, ecs.GetComponent[Label](cm, b).IsActive())
	require.Equal(t, a, ecs.GetComponent[Position](cm, a).Owner())

	// Same table layout as the source.
	require.Equal(t, 0, dst.Lookup().IndexOf(a, ecs.TypeOf[Position]()))
	require.Equal(t, 1, dst.Lookup().IndexOf(b, ecs.TypeOf[Position]()))
	require.Equal(t, 3, dst.Stats().Components)
}

func TestRestoreUnknownType(t *testing.T) {
	dec := NewDecoders()
	w := ecs.NewWorld()

	_, err := dec.Restore(w, []ComponentRow{{Entity: 1, TypeName: "persist.Position", Data: []byte(`{}`)}})
	require.ErrorContains(t, err, `no decoder for component type "persist.Position"`)
	require.Zero(t, w.Entities().Count(), "nothing is created when a type is missing")
}

func TestRestoreBadData(t *testing.T) {
	dec := NewDecoders()
	RegisterDecoder[Label](dec)

	_, err := dec.Restore(ecs.NewWorld(), []ComponentRow{{Entity: 9, TypeName: "persist.Label", Data: []byte(`{"text":5}`)}})
	require.ErrorContains(t, err, "decode persist.Label of entity(9)")
}

package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// Snapshot is one saved copy of every component in a world.
type Snapshot struct {
	ID         uuid.UUID
	WorldID    uuid.UUID
	Frame      uint64
	Entities   int
	CreatedAt  time.Time
	Components []ComponentRow
}

// ComponentRow is one table slot with its value encoded as JSON.
type ComponentRow struct {
	Entity   ecs.Entity
	TypeName string
	Slot     int
	Active   bool
	Data     json.RawMessage
}

// BuildSnapshot encodes records, as produced by ecs.World.Snapshot, into a
// new snapshot of worldID taken at frame.
func BuildSnapshot(worldID uuid.UUID, frame uint64, records []ecs.ComponentRecord) (*Snapshot, error) {
	snap := &Snapshot{
		ID:         uuid.New(),
		WorldID:    worldID,
		Frame:      frame,
		CreatedAt:  time.Now().UTC(),
		Components: make([]ComponentRow, 0, len(records)),
	}
	seen := make(map[ecs.Entity]struct{}, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s of %s: %w", rec.Name, rec.Entity, err)
		}
		snap.Components = append(snap.Components, ComponentRow{
			Entity:   rec.Entity,
			TypeName: rec.Name,
			Slot:     rec.Index,
			Active:   rec.Active,
			Data:     data,
		})
		seen[rec.Entity] = struct{}{}
	}
	snap.Entities = len(seen)
	return snap, nil
}

// decodeFunc adds one decoded row to e.
type decodeFunc func(m *ecs.ComponentManager, e ecs.Entity, row ComponentRow) error

// Decoders maps component type names back to concrete types so snapshots can
// be restored.
type Decoders struct {
	byName map[string]decodeFunc
}

func NewDecoders() *Decoders {
	return &Decoders{byName: make(map[string]decodeFunc)}
}

// RegisterDecoder makes rows of component type T restorable.
func RegisterDecoder[T any, PT ecs.ComponentPtr[T]](d *Decoders) {
	name := ecs.TypeName(ecs.TypeOf[T]())
	d.byName[name] = func(m *ecs.ComponentManager, e ecs.Entity, row ComponentRow) error {
		var v T
		if err := json.Unmarshal(row.Data, &v); err != nil {
			return fmt.Errorf("decode %s of %s: %w", name, row.Entity, err)
		}
		c := ecs.AddComponent[T, PT](m, e, v)
		PT(c).SetActive(row.Active)
		return nil
	}
}

// Restore recreates the rows in w. Entity ids are never reused, so every
// saved entity gets a fresh one; the returned map goes from saved id to new
// id. Rows of one type are added in slot order, which reproduces the saved
// table layout in an empty world.
func (d *Decoders) Restore(w *ecs.World, rows []ComponentRow) (map[ecs.Entity]ecs.Entity, error) {
	for _, row := range rows {
		if _, ok := d.byName[row.TypeName]; !ok {
			return nil, fmt.Errorf("restore: no decoder for component type %q", row.TypeName)
		}
	}
	remap := make(map[ecs.Entity]ecs.Entity)
	for _, row := range rows {
		e, ok := remap[row.Entity]
		if !ok {
			e = w.CreateEntity()
			remap[row.Entity] = e
		}
		if err := d.byName[row.TypeName](w.Components(), e, row); err != nil {
			return remap, err
		}
	}
	return remap, nil
}

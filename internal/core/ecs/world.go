package ecs

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// World is the one exclusively owned ECS context. It holds the storage and
// the lookup and wires the managers, the query builder and the change
// tracking around them. Everything else receives the World by reference.
// A World is not safe for concurrent use.
type World struct {
	id         uuid.UUID
	alloc      Allocator
	storage    *ComponentStorage
	lookup     *ComponentLookup
	entities   *EntityManager
	components *ComponentManager
	queries    *QueryBuilder
	tracker    *StructuralChangeTracker
	handler    *StructuralChangeHandler
	log        *zap.Logger
}

type worldOptions struct {
	id             uuid.UUID
	alloc          Allocator
	log            *zap.Logger
	entityCapacity int
	tableCapacity  int
}

// Option configures NewWorld.
type Option func(*worldOptions)

// WithAllocator sets the growth policy used by every pool in the world.
func WithAllocator(a Allocator) Option {
	return func(o *worldOptions) { o.alloc = a }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *worldOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithCapacity presizes the entity directory and every new table.
func WithCapacity(entities, tablePerType int) Option {
	return func(o *worldOptions) {
		o.entityCapacity = entities
		o.tableCapacity = tablePerType
	}
}

// WithID fixes the world id instead of generating a random one.
func WithID(id uuid.UUID) Option {
	return func(o *worldOptions) { o.id = id }
}

func NewWorld(opts ...Option) *World {
	o := worldOptions{
		alloc:          DefaultAllocator,
		log:            zap.NewNop(),
		entityCapacity: 256,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}

	w := &World{
		id:      o.id,
		alloc:   o.alloc,
		storage: NewComponentStorage(o.alloc, o.tableCapacity),
		lookup:  NewComponentLookup(o.alloc, o.entityCapacity),
		tracker: NewStructuralChangeTracker(),
		log:     o.log,
	}
	w.queries = NewQueryBuilder(w.storage, w.lookup)
	w.handler = NewStructuralChangeHandler(w.storage, w.queries, w.tracker)
	w.components = NewComponentManager(w.storage, w.lookup, w.handler)
	w.entities = newEntityManager(w.lookup, w.components)
	return w
}

func (w *World) ID() uuid.UUID                     { return w.id }
func (w *World) Allocator() Allocator              { return w.alloc }
func (w *World) Storage() *ComponentStorage        { return w.storage }
func (w *World) Lookup() *ComponentLookup          { return w.lookup }
func (w *World) Entities() *EntityManager          { return w.entities }
func (w *World) Components() *ComponentManager     { return w.components }
func (w *World) Queries() *QueryBuilder            { return w.queries }
func (w *World) Tracker() *StructuralChangeTracker { return w.tracker }
func (w *World) Handler() *StructuralChangeHandler { return w.handler }
func (w *World) Logger() *zap.Logger               { return w.log }

func (w *World) CreateEntity() Entity { return w.entities.Create() }

func (w *World) DeleteEntity(e Entity) { w.entities.Delete(e) }

// MarkForDestruction queues e for deletion at the end of the frame.
func (w *World) MarkForDestruction(e Entity) { w.entities.MarkForDestruction(e) }

// FlushDestroyQueue deletes every queued entity.
func (w *World) FlushDestroyQueue() int { return w.entities.FlushDestroyQueue() }

// Clear deletes every entity and component but keeps all table capacity.
// Each registered type is notified once, so queries and system activation
// see the world go empty.
func (w *World) Clear() {
	var live []Entity
	w.lookup.Each(func(e Entity) { live = append(live, e) })
	for _, e := range live {
		w.lookup.Untrack(e)
	}
	for _, id := range w.storage.RewindAll() {
		w.handler.OnStructuralChange(id)
	}
	w.entities.destroyQueue = w.entities.destroyQueue[:0]
	clear(w.entities.queued)
	w.log.Debug("world cleared", zap.Int("entities", len(live)))
}

// ComponentRecord is one exported table row.
type ComponentRecord struct {
	Entity Entity
	Type   TypeID
	Name   string
	Index  int
	Active bool
	Value  any
}

// Snapshot exports every occupied row of every table, ordered by type id and
// then slot.
func (w *World) Snapshot() []ComponentRecord {
	var out []ComponentRecord
	for _, id := range w.storage.Types() {
		t, _ := w.storage.Erased(id)
		name := TypeName(id)
		for i := 0; i < t.Len(); i++ {
			out = append(out, ComponentRecord{
				Entity: t.OwnerAt(i),
				Type:   id,
				Name:   name,
				Index:  i,
				Active: t.ActiveAt(i),
				Value:  t.Value(i),
			})
		}
	}
	return out
}

// Stats is a point-in-time summary of a world.
type Stats struct {
	Entities   int
	Minted     uint64
	Types      int
	Components int
	Queries    int
	Pending    int
}

func (w *World) Stats() Stats {
	s := Stats{
		Entities: w.entities.Count(),
		Minted:   w.entities.Minted(),
		Queries:  w.queries.Len(),
		Pending:  w.entities.Pending(),
	}
	for _, id := range w.storage.Types() {
		t, _ := w.storage.Erased(id)
		s.Types++
		s.Components += t.Len()
	}
	return s
}

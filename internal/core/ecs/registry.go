package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeID is a dense, process-stable component type id. Ids are assigned the
// first time a type is seen and index straight into storage slices.
type TypeID uint32

type typeRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]TypeID
	byName map[string]TypeID
	types  []reflect.Type
}

var types = typeRegistry{
	byType: make(map[reflect.Type]TypeID, 64),
	byName: make(map[string]TypeID, 128),
}

// TypeOf returns the TypeID of T, assigning one on first use.
func TypeOf[T any]() TypeID {
	return types.idOf(reflect.TypeFor[T]())
}

// TypeName returns the qualified Go name of id, e.g. "game.Position".
func TypeName(id TypeID) string {
	types.mu.RLock()
	defer types.mu.RUnlock()
	if int(id) >= len(types.types) {
		return fmt.Sprintf("type#%d", id)
	}
	return types.types[id].String()
}

// LookupTypeName resolves a name registered by TypeOf. Both the qualified
// name and the bare type name are accepted; on bare-name clashes the first
// registered type wins.
func LookupTypeName(name string) (TypeID, bool) {
	types.mu.RLock()
	defer types.mu.RUnlock()
	id, ok := types.byName[name]
	return id, ok
}

func (r *typeRegistry) idOf(t reflect.Type) TypeID {
	r.mu.RLock()
	id, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byType[t]; ok {
		return id
	}
	id = TypeID(len(r.types))
	r.types = append(r.types, t)
	r.byType[t] = id
	r.byName[t.String()] = id
	if _, taken := r.byName[t.Name()]; !taken && t.Name() != "" {
		r.byName[t.Name()] = id
	}
	return id
}

// ErasedTable is the per-type record the storage keeps for every registered
// type. It carries just enough to remove, inspect and export rows without
// knowing the component's static type.
type ErasedTable interface {
	TypeID() TypeID
	Len() int
	IsEmpty() bool
	EraseAt(i int)
	TopOwner() Entity
	OwnerAt(i int) Entity
	ActiveAt(i int) bool
	Value(i int) any
	Rewind()
}

// ComponentStorage maps every registered component type to its table.
type ComponentStorage struct {
	tables   []ErasedTable
	alloc    Allocator
	capacity int
}

func NewComponentStorage(alloc Allocator, capacity int) *ComponentStorage {
	if alloc == nil {
		alloc = DefaultAllocator
	}
	return &ComponentStorage{
		tables:   make([]ErasedTable, 0, 16),
		alloc:    alloc,
		capacity: capacity,
	}
}

// RegisterType creates an empty table for T. Registering T twice panics.
func RegisterType[T any, PT ComponentPtr[T]](s *ComponentStorage) *Table[T] {
	id := TypeOf[T]()
	if s.IsRegistered(id) {
		panic(fmt.Sprintf("ecs: component type %s already registered", TypeName(id)))
	}
	t := newTable[T, PT](id, s.alloc, s.capacity)
	s.put(id, t)
	return t
}

// GetOrCreate returns T's table, registering it on first use. Queries and
// command buffers may name a type before any instance of it exists.
func GetOrCreate[T any, PT ComponentPtr[T]](s *ComponentStorage) *Table[T] {
	id := TypeOf[T]()
	if s.IsRegistered(id) {
		return s.tables[id].(*Table[T])
	}
	t := newTable[T, PT](id, s.alloc, s.capacity)
	s.put(id, t)
	return t
}

// GetAsserted returns T's table and panics if T was never registered.
func GetAsserted[T any](s *ComponentStorage) *Table[T] {
	id := TypeOf[T]()
	if !s.IsRegistered(id) {
		panic(fmt.Sprintf("ecs: component type %s not registered", TypeName(id)))
	}
	return s.tables[id].(*Table[T])
}

// TryGet returns T's table if it is registered.
func TryGet[T any](s *ComponentStorage) (*Table[T], bool) {
	id := TypeOf[T]()
	if !s.IsRegistered(id) {
		return nil, false
	}
	return s.tables[id].(*Table[T]), true
}

func (s *ComponentStorage) IsRegistered(id TypeID) bool {
	return int(id) < len(s.tables) && s.tables[id] != nil
}

// HasAny reports whether id's table holds at least one component. Unknown
// types report false.
func (s *ComponentStorage) HasAny(id TypeID) bool {
	if !s.IsRegistered(id) {
		return false
	}
	return !s.tables[id].IsEmpty()
}

// Erased returns id's table without its static type.
func (s *ComponentStorage) Erased(id TypeID) (ErasedTable, bool) {
	if !s.IsRegistered(id) {
		return nil, false
	}
	return s.tables[id], true
}

// Types lists registered type ids in ascending order.
func (s *ComponentStorage) Types() []TypeID {
	out := make([]TypeID, 0, len(s.tables))
	for id, t := range s.tables {
		if t != nil {
			out = append(out, TypeID(id))
		}
	}
	return out
}

// RewindAll empties every table while keeping its capacity and returns the
// ids of the tables that held rows.
func (s *ComponentStorage) RewindAll() []TypeID {
	var emptied []TypeID
	for id, t := range s.tables {
		if t == nil || t.IsEmpty() {
			continue
		}
		t.Rewind()
		emptied = append(emptied, TypeID(id))
	}
	return emptied
}

func (s *ComponentStorage) put(id TypeID, t ErasedTable) {
	for int(id) >= len(s.tables) {
		s.tables = append(s.tables, nil)
	}
	s.tables[id] = t
}

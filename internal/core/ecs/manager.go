package ecs

import "fmt"

// ComponentManager is the single-operation mutation API. Every add and remove
// leaves the storage and the lookup consistent and then fires exactly one
// structural change notification for the touched type.
type ComponentManager struct {
	storage *ComponentStorage
	lookup  *ComponentLookup
	handler ChangeHandler
}

func NewComponentManager(storage *ComponentStorage, lookup *ComponentLookup, handler ChangeHandler) *ComponentManager {
	return &ComponentManager{storage: storage, lookup: lookup, handler: handler}
}

func (m *ComponentManager) Storage() *ComponentStorage { return m.storage }
func (m *ComponentManager) Lookup() *ComponentLookup   { return m.lookup }

// AddComponent stamps v with e as its owner, appends it to T's table and
// returns a pointer to the stored value. The pointer is only valid until the
// next structural change to T.
func AddComponent[T any, PT ComponentPtr[T]](m *ComponentManager, e Entity, v T) *T {
	id := TypeOf[T]()
	if !m.lookup.IsTracked(e) {
		panic(fmt.Sprintf("ecs: add %s to untracked %s", TypeName(id), e))
	}
	if m.lookup.Has(e, id) {
		panic(fmt.Sprintf("ecs: %s already has a %s component", e, TypeName(id)))
	}
	PT(&v).SetOwner(e)
	table := GetOrCreate[T, PT](m.storage)
	i := table.Add(v)
	m.lookup.Add(e, id, i)
	m.notify(id)
	return table.Get(i)
}

// RemoveComponent removes e's T component. e must own one.
func RemoveComponent[T any](m *ComponentManager, e Entity) {
	m.RemoveByType(e, TypeOf[T]())
}

// RemoveByType is RemoveComponent for callers holding only a TypeID.
func (m *ComponentManager) RemoveByType(e Entity, id TypeID) {
	index := m.lookup.IndexOf(e, id)
	table, ok := m.storage.Erased(id)
	if !ok {
		panic(fmt.Sprintf("ecs: component type %s not registered", TypeName(id)))
	}
	m.lookup.Remove(e, id)
	m.detach(table, index)
	m.notify(id)
}

// GetComponent returns e's T component and panics if e has none.
func GetComponent[T any](m *ComponentManager, e Entity) *T {
	c, ok := TryGetComponent[T](m, e)
	if !ok {
		panic(fmt.Sprintf("ecs: %s has no %s component", e, TypeName(TypeOf[T]())))
	}
	return c
}

// TryGetComponent returns e's T component if present.
func TryGetComponent[T any](m *ComponentManager, e Entity) (*T, bool) {
	id := TypeOf[T]()
	index, ok := m.lookup.TryIndexOf(e, id)
	if !ok {
		return nil, false
	}
	table, ok := m.storage.Erased(id)
	if !ok {
		return nil, false
	}
	return table.(*Table[T]).Get(index), true
}

// HasComponent reports whether e owns a T component.
func HasComponent[T any](m *ComponentManager, e Entity) bool {
	return m.lookup.Has(e, TypeOf[T]())
}

// Has reports whether e owns a component of type id.
func (m *ComponentManager) Has(e Entity, id TypeID) bool {
	return m.lookup.Has(e, id)
}

// detach swap-removes slot index from table. The owner of the last slot is
// read before the table moves it, and its lookup entry is pointed at the
// vacated slot afterwards. The caller has already dropped the removed
// entity's own entry.
func (m *ComponentManager) detach(table ErasedTable, index int) {
	last := table.Len() - 1
	moved := table.TopOwner()
	table.EraseAt(index)
	if index != last {
		m.lookup.SetIndex(moved, table.TypeID(), index)
	}
}

func (m *ComponentManager) notify(id TypeID) {
	if m.handler != nil {
		m.handler.OnStructuralChange(id)
	}
}

package event

import "github.com/l1jgo/ecsworld/internal/core/ecs"

// SystemEnabled is emitted when a system becomes active.
type SystemEnabled struct {
	System string
	Frame  uint64
}

// SystemDisabled is emitted when a system is deactivated because one of its
// required component tables emptied.
type SystemDisabled struct {
	System string
	Frame  uint64
}

// SystemDestroyed is emitted once per destroyed system.
type SystemDestroyed struct {
	System string
	Frame  uint64
}

// TablesChanged summarizes the table transitions consumed by one
// activation flush.
type TablesChanged struct {
	Frame   uint64
	Emptied []ecs.TypeID
	Filled  []ecs.TypeID
}

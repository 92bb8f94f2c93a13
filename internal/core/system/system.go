package system

import (
	"time"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// Phase names the per-frame callbacks a world drives.
type Phase int

const (
	PhaseUpdate      Phase = iota // variable step
	PhaseFixedUpdate              // fixed step, zero or more times per frame
	PhaseLateUpdate               // after every update, before the activation flush
)

func (p Phase) String() string {
	switch p {
	case PhaseUpdate:
		return "update"
	case PhaseFixedUpdate:
		return "fixed_update"
	case PhaseLateUpdate:
		return "late_update"
	default:
		return "unknown"
	}
}

// State is where a system sits in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateInactive
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// System is a unit of per-frame logic. A system is active only while every
// component type it requires has at least one instance; a system with no
// requirements is always active.
type System interface {
	Name() string
	// Requirements is read once, right after OnInitialize.
	Requirements() []ecs.TypeID

	OnInitialize(w *World)
	OnStart(w *World)
	OnEnable(w *World)
	OnUpdate(w *World, dt time.Duration)
	OnFixedUpdate(w *World, dt time.Duration)
	OnLateUpdate(w *World, dt time.Duration)
	OnDisable(w *World)
	OnDestroy(w *World)
}

// Base gives embedding systems a name, requirement bookkeeping and no-op
// hooks, so they only implement the callbacks they care about.
type Base struct {
	name     string
	requires []ecs.TypeID
}

func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string { return b.name }

// RequireComponent declares dependencies. Call it from the constructor or
// from OnInitialize.
func (b *Base) RequireComponent(ids ...ecs.TypeID) {
	for _, id := range ids {
		if !containsID(b.requires, id) {
			b.requires = append(b.requires, id)
		}
	}
}

// Require declares a dependency on T.
func Require[T any](b *Base) {
	b.RequireComponent(ecs.TypeOf[T]())
}

func (b *Base) Requirements() []ecs.TypeID { return b.requires }

func (b *Base) OnInitialize(*World)                 {}
func (b *Base) OnStart(*World)                      {}
func (b *Base) OnEnable(*World)                     {}
func (b *Base) OnUpdate(*World, time.Duration)      {}
func (b *Base) OnFixedUpdate(*World, time.Duration) {}
func (b *Base) OnLateUpdate(*World, time.Duration)  {}
func (b *Base) OnDisable(*World)                    {}
func (b *Base) OnDestroy(*World)                    {}

func containsID(ids []ecs.TypeID, id ecs.TypeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

package system

import (
	"time"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// entry is the world's bookkeeping for one registered system.
type entry struct {
	sys     System
	order   int
	state   State
	deps    []ecs.TypeID
	started bool
}

// Runner keeps systems in registration order and runs the active ones
// phase by phase.
type Runner struct {
	entries  []*entry
	active   []*entry
	bySystem map[System]*entry
	next     int
}

func NewRunner() *Runner {
	return &Runner{
		entries:  make([]*entry, 0, 16),
		bySystem: make(map[System]*entry, 16),
	}
}

func (r *Runner) register(s System) *entry {
	e := &entry{sys: s, order: r.next, state: StateUninitialized}
	r.next++
	r.entries = append(r.entries, e)
	r.bySystem[s] = e
	return e
}

// remove drops e from the run order. Its bySystem record is kept so the
// system still reports StateDestroyed.
func (r *Runner) remove(e *entry) {
	for i, x := range r.entries {
		if x == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.rebuildActive()
}

func (r *Runner) lookup(s System) (*entry, bool) {
	e, ok := r.bySystem[s]
	return e, ok
}

// rebuildActive recomputes the active list in registration order. It always
// allocates a fresh slice so a phase loop iterating the old list is not
// disturbed by systems being enabled or added mid-phase.
func (r *Runner) rebuildActive() {
	active := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.state == StateActive {
			active = append(active, e)
		}
	}
	r.active = active
}

// Tick runs one phase over the active systems. OnStart fires right before a
// system's first phase callback.
func (r *Runner) Tick(w *World, phase Phase, dt time.Duration) {
	for _, e := range r.active {
		if e.state != StateActive {
			continue
		}
		if !e.started {
			e.started = true
			e.sys.OnStart(w)
		}
		switch phase {
		case PhaseUpdate:
			e.sys.OnUpdate(w, dt)
		case PhaseFixedUpdate:
			e.sys.OnFixedUpdate(w, dt)
		case PhaseLateUpdate:
			e.sys.OnLateUpdate(w, dt)
		}
	}
}

// Systems returns registered systems in registration order.
func (r *Runner) Systems() []System {
	out := make([]System, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.sys
	}
	return out
}

// Active returns the active systems in registration order.
func (r *Runner) Active() []System {
	out := make([]System, len(r.active))
	for i, e := range r.active {
		out[i] = e.sys
	}
	return out
}

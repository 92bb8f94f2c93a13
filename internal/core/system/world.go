package system

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/event"
)

const (
	DefaultFixedStep     = 20 * time.Millisecond
	DefaultMaxFixedSteps = 5
)

// World drives systems over one ecs.World: it owns registration order,
// activation gating and the per-frame phase loop.
type World struct {
	ecs    *ecs.World
	runner *Runner
	bus    *event.Bus
	log    *zap.Logger

	fixedStep     time.Duration
	maxFixedSteps int
	accumulator   time.Duration
	frame         uint64
	closed        bool
}

type Option func(*World)

func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// WithFixedStep sets the fixed update interval and the most fixed updates
// run in a single Tick.
func WithFixedStep(step time.Duration, maxSteps int) Option {
	return func(w *World) {
		if step > 0 {
			w.fixedStep = step
		}
		if maxSteps > 0 {
			w.maxFixedSteps = maxSteps
		}
	}
}

func WithBus(bus *event.Bus) Option {
	return func(w *World) {
		if bus != nil {
			w.bus = bus
		}
	}
}

func NewWorld(ew *ecs.World, opts ...Option) *World {
	if ew == nil {
		panic("ecs: system world needs an ecs world")
	}
	w := &World{
		ecs:           ew,
		runner:        NewRunner(),
		bus:           event.NewBus(),
		log:           zap.NewNop(),
		fixedStep:     DefaultFixedStep,
		maxFixedSteps: DefaultMaxFixedSteps,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) ECS() *ecs.World          { return w.ecs }
func (w *World) Bus() *event.Bus          { return w.bus }
func (w *World) Logger() *zap.Logger      { return w.log }
func (w *World) Frame() uint64            { return w.frame }
func (w *World) FixedStep() time.Duration { return w.fixedStep }

// AddSystem registers s, fires OnInitialize and decides its initial
// activation from the current table contents.
func (w *World) AddSystem(s System) {
	if w.closed {
		panic(fmt.Sprintf("ecs: add system %q to closed world", s.Name()))
	}
	if _, ok := w.runner.lookup(s); ok {
		panic(fmt.Sprintf("ecs: system %q already added", s.Name()))
	}
	e := w.runner.register(s)
	s.OnInitialize(w)
	e.deps = append([]ecs.TypeID(nil), s.Requirements()...)

	if w.satisfied(e) {
		e.state = StateActive
		w.runner.rebuildActive()
		s.OnEnable(w)
	} else {
		e.state = StateInactive
	}
	w.log.Info("system added",
		zap.String("system", s.Name()),
		zap.Int("requires", len(e.deps)),
		zap.Stringer("state", e.state),
	)
}

// State reports the lifecycle state of s. Systems never added report
// StateUninitialized.
func (w *World) State(s System) State {
	if e, ok := w.runner.lookup(s); ok {
		return e.state
	}
	return StateUninitialized
}

// DestroySystem fires OnDisable for an active system, then OnDestroy, and
// forgets it.
func (w *World) DestroySystem(s System) {
	e, ok := w.runner.lookup(s)
	if !ok {
		panic(fmt.Sprintf("ecs: destroy unknown system %q", s.Name()))
	}
	if e.state == StateDestroyed {
		panic(fmt.Sprintf("ecs: system %q already destroyed", s.Name()))
	}
	w.destroy(e)
	w.runner.remove(e)
}

func (w *World) destroy(e *entry) {
	if e.state == StateActive {
		e.sys.OnDisable(w)
	}
	e.state = StateDestroyed
	e.sys.OnDestroy(w)
	event.Emit(w.bus, event.SystemDestroyed{System: e.sys.Name(), Frame: w.frame})
	w.log.Debug("system destroyed", zap.String("system", e.sys.Name()))
}

func (w *World) Update(dt time.Duration)      { w.runner.Tick(w, PhaseUpdate, dt) }
func (w *World) FixedUpdate(dt time.Duration) { w.runner.Tick(w, PhaseFixedUpdate, dt) }
func (w *World) LateUpdate(dt time.Duration)  { w.runner.Tick(w, PhaseLateUpdate, dt) }

// CommitSystemsStructuralChange applies the table transitions recorded since
// the last call: active systems depending on an emptied type are disabled,
// inactive systems whose requirements are all present are enabled. The
// tracker is cleared either way.
func (w *World) CommitSystemsStructuralChange() {
	tracker := w.ecs.Tracker()
	if !tracker.HasChanges() {
		return
	}
	emptied := tracker.BecameEmpty()
	filled := tracker.BecameNonEmpty()
	tracker.Reset()

	var enabled, disabled []*entry
	for _, e := range w.runner.entries {
		switch e.state {
		case StateActive:
			if dependsOnAny(e.deps, emptied) {
				disabled = append(disabled, e)
			}
		case StateInactive:
			if len(e.deps) > 0 && w.satisfied(e) {
				enabled = append(enabled, e)
			}
		}
	}

	// Hooks may destroy peers, so state is rechecked per entry.
	for _, e := range disabled {
		if e.state != StateActive {
			continue
		}
		e.state = StateInactive
		w.runner.rebuildActive()
		e.sys.OnDisable(w)
		event.Emit(w.bus, event.SystemDisabled{System: e.sys.Name(), Frame: w.frame})
		w.log.Debug("system disabled", zap.String("system", e.sys.Name()), zap.Uint64("frame", w.frame))
	}
	for _, e := range enabled {
		if e.state != StateInactive {
			continue
		}
		e.state = StateActive
		w.runner.rebuildActive()
		e.sys.OnEnable(w)
		event.Emit(w.bus, event.SystemEnabled{System: e.sys.Name(), Frame: w.frame})
		w.log.Debug("system enabled", zap.String("system", e.sys.Name()), zap.Uint64("frame", w.frame))
	}
	event.Emit(w.bus, event.TablesChanged{Frame: w.frame, Emptied: emptied, Filled: filled})
}

// Tick runs one frame. Events emitted during the previous frame are
// delivered first, then Update, as many FixedUpdates as the accumulated time
// allows (capped), LateUpdate, the destroy queue flush and the activation
// flush.
func (w *World) Tick(dt time.Duration) {
	w.bus.Flush()
	w.frame++
	w.Update(dt)

	w.accumulator += dt
	steps := 0
	for w.accumulator >= w.fixedStep && steps < w.maxFixedSteps {
		w.FixedUpdate(w.fixedStep)
		w.accumulator -= w.fixedStep
		steps++
	}
	if steps == w.maxFixedSteps && w.accumulator >= w.fixedStep {
		// Drop the backlog rather than spiral.
		w.accumulator = 0
	}

	w.LateUpdate(dt)
	w.ecs.FlushDestroyQueue()
	w.CommitSystemsStructuralChange()
}

// Close destroys every remaining system in registration order. The world
// cannot be used afterwards.
func (w *World) Close() {
	if w.closed {
		return
	}
	w.closed = true
	for _, e := range slices.Clone(w.runner.entries) {
		if e.state == StateDestroyed {
			continue
		}
		w.destroy(e)
	}
	w.runner.entries = w.runner.entries[:0]
	w.runner.rebuildActive()
}

// Systems returns every registered system in registration order.
func (w *World) Systems() []System { return w.runner.Systems() }

// ActiveSystems returns the active systems in registration order.
func (w *World) ActiveSystems() []System { return w.runner.Active() }

func (w *World) satisfied(e *entry) bool {
	storage := w.ecs.Storage()
	for _, id := range e.deps {
		if !storage.HasAny(id) {
			return false
		}
	}
	return true
}

func dependsOnAny(deps, ids []ecs.TypeID) bool {
	for _, d := range deps {
		if containsID(ids, d) {
			return true
		}
	}
	return false
}

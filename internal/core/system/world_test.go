package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/event"
)

type Armor struct {
	ecs.ComponentBase
	Value int
}

type Shield struct {
	ecs.ComponentBase
}

// recorder counts every hook it receives.
type recorder struct {
	Base
	calls map[string]int
	order *[]string
}

func newRecorder(name string, order *[]string, deps ...ecs.TypeID) *recorder {
	r := &recorder{Base: NewBase(name), calls: make(map[string]int), order: order}
	r.RequireComponent(deps...)
	return r
}

func (r *recorder) hit(hook string) {
	r.calls[hook]++
	if r.order != nil {
		*r.order = append(*r.order, r.Name()+"."+hook)
	}
}

func (r *recorder) OnInitialize(*World)                 { r.hit("init") }
func (r *recorder) OnStart(*World)                      { r.hit("start") }
func (r *recorder) OnEnable(*World)                     { r.hit("enable") }
func (r *recorder) OnUpdate(*World, time.Duration)      { r.hit("update") }
func (r *recorder) OnFixedUpdate(*World, time.Duration) { r.hit("fixed") }
func (r *recorder) OnLateUpdate(*World, time.Duration)  { r.hit("late") }
func (r *recorder) OnDisable(*World)                    { r.hit("disable") }
func (r *recorder) OnDestroy(*World)                    { r.hit("destroy") }

func newTestWorld(t *testing.T, opts ...Option) *World {
	t.Helper()
	log := zaptest.NewLogger(t)
	opts = append([]Option{WithLogger(log)}, opts...)
	return NewWorld(ecs.NewWorld(ecs.WithLogger(log)), opts...)
}

func TestAddSystemWithoutRequirementsIsActive(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("free", nil)

	w.AddSystem(s)

	require.Equal(t, StateActive, w.State(s))
	require.Equal(t, 1, s.calls["init"])
	require.Equal(t, 1, s.calls["enable"])
	require.Equal(t, []System{s}, w.ActiveSystems())
}

func TestAddSystemWithMissingRequirementIsInactive(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())

	w.AddSystem(s)

	require.Equal(t, StateInactive, w.State(s))
	require.Equal(t, 1, s.calls["init"])
	require.Zero(t, s.calls["enable"])
	require.Empty(t, w.ActiveSystems())

	w.Update(time.Millisecond)
	require.Zero(t, s.calls["update"])
}

func TestAddSystemWithPresentRequirementIsActive(t *testing.T) {
	w := newTestWorld(t)
	e := w.ECS().CreateEntity()
	ecs.AddComponent(w.ECS().Components(), e, Armor{Value: 3})

	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)

	require.Equal(t, StateActive, w.State(s))
	require.Equal(t, 1, s.calls["enable"])
}

func TestRequirementsDeclaredInOnInitialize(t *testing.T) {
	w := newTestWorld(t)
	s := &lateRequirer{Base: NewBase("late")}

	w.AddSystem(s)

	require.Equal(t, StateInactive, w.State(s))
}

type lateRequirer struct{ Base }

func (s *lateRequirer) OnInitialize(*World) { Require[Shield](&s.Base) }

func TestActivationFollowsTableTransitions(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)
	cm := w.ECS().Components()

	e := w.ECS().CreateEntity()
	ecs.AddComponent(cm, e, Armor{Value: 1})
	require.Equal(t, StateInactive, w.State(s), "activation waits for the flush")

	w.CommitSystemsStructuralChange()
	require.Equal(t, StateActive, w.State(s))
	require.Equal(t, 1, s.calls["enable"])

	// A second filled entity is not a transition.
	e2 := w.ECS().CreateEntity()
	ecs.AddComponent(cm, e2, Armor{Value: 2})
	w.CommitSystemsStructuralChange()
	require.Equal(t, 1, s.calls["enable"])

	ecs.RemoveComponent[Armor](cm, e)
	w.CommitSystemsStructuralChange()
	require.Equal(t, StateActive, w.State(s))

	ecs.RemoveComponent[Armor](cm, e2)
	w.CommitSystemsStructuralChange()
	require.Equal(t, StateInactive, w.State(s))
	require.Equal(t, 1, s.calls["disable"])
	require.Empty(t, w.ActiveSystems())
}

func TestFlushWithoutTransitionsChangesNothing(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)

	w.CommitSystemsStructuralChange()
	w.CommitSystemsStructuralChange()

	require.Equal(t, StateInactive, w.State(s))
	require.Zero(t, s.calls["enable"])
	require.Zero(t, s.calls["disable"])
	require.False(t, w.ECS().Tracker().HasChanges())
}

func TestFlushClearsTrackerWhenTransitionsCancel(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)
	cm := w.ECS().Components()

	e := w.ECS().CreateEntity()
	ecs.AddComponent(cm, e, Armor{})
	ecs.RemoveComponent[Armor](cm, e)
	w.CommitSystemsStructuralChange()

	require.Equal(t, StateInactive, w.State(s))
	require.Zero(t, s.calls["enable"])
	require.False(t, w.ECS().Tracker().HasChanges())
}

func TestActivationNeedsEveryRequirement(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("both", nil, ecs.TypeOf[Armor](), ecs.TypeOf[Shield]())
	w.AddSystem(s)
	cm := w.ECS().Components()
	e := w.ECS().CreateEntity()

	ecs.AddComponent(cm, e, Armor{})
	w.CommitSystemsStructuralChange()
	require.Equal(t, StateInactive, w.State(s))

	ecs.AddComponent(cm, e, Shield{})
	w.CommitSystemsStructuralChange()
	require.Equal(t, StateActive, w.State(s))

	// Deleting the entity empties both tables; the system is disabled once.
	w.ECS().DeleteEntity(e)
	w.CommitSystemsStructuralChange()
	require.Equal(t, StateInactive, w.State(s))
	require.Equal(t, 1, s.calls["disable"])
}

func TestPhasesRunInRegistrationOrder(t *testing.T) {
	w := newTestWorld(t, WithFixedStep(10*time.Millisecond, 4))
	var order []string
	a := newRecorder("a", &order)
	b := newRecorder("b", &order)
	w.AddSystem(a)
	w.AddSystem(b)
	order = order[:0]

	w.Tick(10 * time.Millisecond)

	require.Equal(t, []string{
		"a.start", "a.update", "b.start", "b.update",
		"a.fixed", "b.fixed",
		"a.late", "b.late",
	}, order)
	require.Equal(t, uint64(1), w.Frame())
}

func TestOrderSurvivesReactivation(t *testing.T) {
	w := newTestWorld(t)
	var order []string
	first := newRecorder("first", &order, ecs.TypeOf[Armor]())
	second := newRecorder("second", &order)
	w.AddSystem(first)
	w.AddSystem(second)

	e := w.ECS().CreateEntity()
	ecs.AddComponent(w.ECS().Components(), e, Armor{})
	w.CommitSystemsStructuralChange()

	require.Equal(t, []System{first, second}, w.ActiveSystems())
}

func TestOnStartFiresOnce(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("s", nil)
	w.AddSystem(s)
	require.Zero(t, s.calls["start"])

	w.Tick(time.Millisecond)
	w.Tick(time.Millisecond)

	require.Equal(t, 1, s.calls["start"])
	require.Equal(t, 2, s.calls["update"])
	require.Equal(t, 2, s.calls["late"])
}

func TestFixedStepAccumulates(t *testing.T) {
	w := newTestWorld(t, WithFixedStep(10*time.Millisecond, 3))
	s := newRecorder("s", nil)
	w.AddSystem(s)

	w.Tick(5 * time.Millisecond)
	require.Zero(t, s.calls["fixed"])
	w.Tick(5 * time.Millisecond)
	require.Equal(t, 1, s.calls["fixed"])
	w.Tick(25 * time.Millisecond)
	require.Equal(t, 3, s.calls["fixed"])

	// Backlog beyond the cap is dropped.
	w.Tick(time.Second)
	require.Equal(t, 6, s.calls["fixed"])
	w.Tick(0)
	require.Equal(t, 6, s.calls["fixed"])
}

func TestTickFlushesDestroyQueueAndActivation(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)

	e := w.ECS().CreateEntity()
	ecs.AddComponent(w.ECS().Components(), e, Armor{})
	w.Tick(time.Millisecond)
	require.Equal(t, StateActive, w.State(s))
	require.Zero(t, s.calls["update"], "enabled after this frame's phases")

	w.Tick(time.Millisecond)
	require.Equal(t, 1, s.calls["update"])

	w.ECS().MarkForDestruction(e)
	w.Tick(time.Millisecond)
	require.False(t, w.ECS().Entities().Alive(e))
	require.Equal(t, StateInactive, w.State(s))
	require.Equal(t, 1, s.calls["disable"])
}

func TestDestroySystem(t *testing.T) {
	w := newTestWorld(t)
	var order []string
	s := newRecorder("s", &order)
	w.AddSystem(s)
	order = order[:0]

	w.DestroySystem(s)

	require.Equal(t, []string{"s.disable", "s.destroy"}, order)
	require.Equal(t, StateDestroyed, w.State(s))
	require.Empty(t, w.ActiveSystems())
	require.Empty(t, w.Systems())
	require.Panics(t, func() { w.DestroySystem(s) })
	require.Panics(t, func() { w.AddSystem(s) })

	// A destroyed system takes no part in later flushes.
	e := w.ECS().CreateEntity()
	ecs.AddComponent(w.ECS().Components(), e, Armor{})
	w.CommitSystemsStructuralChange()
	require.Equal(t, StateDestroyed, w.State(s))
}

func TestDestroyInactiveSystemSkipsDisable(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("s", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)

	w.DestroySystem(s)

	require.Zero(t, s.calls["disable"])
	require.Equal(t, 1, s.calls["destroy"])
}

func TestCloseDestroysInRegistrationOrder(t *testing.T) {
	w := newTestWorld(t)
	var order []string
	a := newRecorder("a", &order)
	b := newRecorder("b", &order, ecs.TypeOf[Shield]())
	w.AddSystem(a)
	w.AddSystem(b)
	order = order[:0]

	w.Close()
	w.Close()

	require.Equal(t, []string{"a.disable", "a.destroy", "b.destroy"}, order)
	require.Panics(t, func() { w.AddSystem(newRecorder("c", nil)) })
}

// hooked is a recorder whose enable and destroy hooks call back into the world.
type hooked struct {
	*recorder
	onEnable  func()
	onDestroy func()
}

func (h *hooked) OnEnable(w *World) {
	h.recorder.OnEnable(w)
	if h.onEnable != nil {
		h.onEnable()
	}
}

func (h *hooked) OnDestroy(w *World) {
	h.recorder.OnDestroy(w)
	if h.onDestroy != nil {
		h.onDestroy()
	}
}

func TestCloseDestroysEachSystemOnceWhenHooksDestroyPeers(t *testing.T) {
	w := newTestWorld(t)
	var order []string
	systems := make([]*recorder, 5)
	for i := range systems {
		systems[i] = newRecorder(string(rune('a'+i)), &order)
	}
	first := &hooked{recorder: systems[0]}
	first.onDestroy = func() {
		w.DestroySystem(systems[2])
		require.Panics(t, func() { w.AddSystem(newRecorder("late", nil)) })
	}
	w.AddSystem(first)
	for _, s := range systems[1:] {
		w.AddSystem(s)
	}
	order = order[:0]

	w.Close()

	for _, s := range systems {
		require.Equal(t, 1, s.calls["destroy"], s.Name())
		require.Equal(t, 1, s.calls["disable"], s.Name())
	}
	require.Equal(t, StateDestroyed, w.State(first))
	require.Equal(t, []string{
		"a.disable", "a.destroy", "c.disable", "c.destroy",
		"b.disable", "b.destroy", "d.disable", "d.destroy", "e.disable", "e.destroy",
	}, order)
	require.Empty(t, w.Systems())
}

func TestEnableHookDestroyingPeerSkipsItsActivation(t *testing.T) {
	w := newTestWorld(t)
	var order []string
	peer := newRecorder("b", &order, ecs.TypeOf[Armor]())
	first := &hooked{recorder: newRecorder("a", &order, ecs.TypeOf[Armor]())}
	first.onEnable = func() { w.DestroySystem(peer) }
	w.AddSystem(first)
	w.AddSystem(peer)

	var enabled []string
	var destroyed []string
	event.Subscribe(w.Bus(), func(ev event.SystemEnabled) { enabled = append(enabled, ev.System) })
	event.Subscribe(w.Bus(), func(ev event.SystemDestroyed) { destroyed = append(destroyed, ev.System) })

	e := w.ECS().CreateEntity()
	ecs.AddComponent(w.ECS().Components(), e, Armor{})
	order = order[:0]
	w.CommitSystemsStructuralChange()

	require.Equal(t, []string{"a.enable", "b.destroy"}, order)
	require.Equal(t, StateActive, w.State(first))
	require.Equal(t, StateDestroyed, w.State(peer))
	require.Equal(t, []System{first}, w.ActiveSystems())

	w.Bus().Flush()
	require.Equal(t, []string{"a"}, enabled)
	require.Equal(t, []string{"b"}, destroyed)
}

func TestDuplicateSystemPanics(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("s", nil)
	w.AddSystem(s)
	require.Panics(t, func() { w.AddSystem(s) })
}

func TestLifecycleEventsDispatchOnFollowingTick(t *testing.T) {
	w := newTestWorld(t)
	s := newRecorder("armored", nil, ecs.TypeOf[Armor]())
	w.AddSystem(s)

	var enabled []event.SystemEnabled
	var changes []event.TablesChanged
	event.Subscribe(w.Bus(), func(ev event.SystemEnabled) { enabled = append(enabled, ev) })
	event.Subscribe(w.Bus(), func(ev event.TablesChanged) { changes = append(changes, ev) })

	e := w.ECS().CreateEntity()
	ecs.AddComponent(w.ECS().Components(), e, Armor{})
	w.Tick(time.Millisecond)
	require.Empty(t, enabled)

	w.Tick(time.Millisecond)
	require.Equal(t, []event.SystemEnabled{{System: "armored", Frame: 1}}, enabled)
	require.Len(t, changes, 1)
	require.Equal(t, []ecs.TypeID{ecs.TypeOf[Armor]()}, changes[0].Filled)
	require.Empty(t, changes[0].Emptied)
}

func TestPhaseAndStateStrings(t *testing.T) {
	require.Equal(t, "fixed_update", PhaseFixedUpdate.String())
	require.Equal(t, "inactive", StateInactive.String())
}

package main

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/system"
	"github.com/l1jgo/ecsworld/internal/persist"
)

type Position struct {
	ecs.ComponentBase
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Velocity struct {
	ecs.ComponentBase
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type Lifetime struct {
	ecs.ComponentBase
	Remaining time.Duration `json:"remaining"`
}

// Frozen entities keep their velocity but do not move.
type Frozen struct {
	ecs.ComponentBase
}

// registerDemoTypes assigns type ids up front so scripts can name the demo
// components and snapshots can restore them.
func registerDemoTypes(dec *persist.Decoders) {
	persist.RegisterDecoder[Position](dec)
	persist.RegisterDecoder[Velocity](dec)
	persist.RegisterDecoder[Lifetime](dec)
	persist.RegisterDecoder[Frozen](dec)
}

// spawner keeps the population at target, batching every new component
// through command buffers.
type spawner struct {
	system.Base
	target int
	rng    *rand.Rand

	positions *ecs.CommandBuffer[Position]
	velocity  *ecs.CommandBuffer[Velocity]
	lifetimes *ecs.CommandBuffer[Lifetime]
	frozen    *ecs.CommandBuffer[Frozen]
}

func newSpawner(target int, seed int64) *spawner {
	return &spawner{
		Base:   system.NewBase("spawner"),
		target: target,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *spawner) OnInitialize(w *system.World) {
	cm := w.ECS().Components()
	s.positions = ecs.NewCommandBuffer[Position](cm)
	s.velocity = ecs.NewCommandBuffer[Velocity](cm)
	s.lifetimes = ecs.NewCommandBuffer[Lifetime](cm)
	s.frozen = ecs.NewCommandBuffer[Frozen](cm)
}

func (s *spawner) OnUpdate(w *system.World, _ time.Duration) {
	missing := s.target - w.ECS().Entities().Count()
	if missing <= 0 {
		return
	}
	s.positions.Reserve(missing, 0)
	s.velocity.Reserve(missing, 0)
	s.lifetimes.Reserve(missing, 0)
	for _, e := range w.ECS().Entities().CreateN(missing) {
		s.positions.Add(e, Position{X: s.rng.Float64() * 100, Y: s.rng.Float64() * 100})
		s.velocity.Add(e, Velocity{DX: s.rng.Float64()*2 - 1, DY: s.rng.Float64()*2 - 1})
		s.lifetimes.Add(e, Lifetime{Remaining: time.Duration(1+s.rng.Intn(10)) * time.Second})
		if s.rng.Intn(8) == 0 {
			s.frozen.Add(e, Frozen{})
		}
	}
	s.positions.Commit()
	s.velocity.Commit()
	s.lifetimes.Commit()
	s.frozen.Commit()
}

// mover integrates velocity into position on the fixed step, skipping
// frozen entities.
type mover struct {
	system.Base
	query *ecs.Query2[Position, Velocity]
}

func newMover() *mover {
	m := &mover{Base: system.NewBase("mover")}
	system.Require[Position](&m.Base)
	system.Require[Velocity](&m.Base)
	return m
}

func (m *mover) OnInitialize(w *system.World) {
	info := ecs.Without[Frozen](ecs.NewQueryInfo())
	m.query = ecs.BuildQuery2[Position, Velocity](w.ECS().Queries(), info)
}

func (m *mover) OnFixedUpdate(_ *system.World, dt time.Duration) {
	sec := dt.Seconds()
	m.query.Each(func(_ ecs.Entity, p *Position, v *Velocity) {
		p.X += v.DX * sec
		p.Y += v.DY * sec
	})
}

// reaper ages lifetimes and queues expired entities for destruction at the
// end of the frame.
type reaper struct {
	system.Base
	query *ecs.Query1[Lifetime]
}

func newReaper() *reaper {
	r := &reaper{Base: system.NewBase("reaper")}
	system.Require[Lifetime](&r.Base)
	return r
}

func (r *reaper) OnInitialize(w *system.World) {
	r.query = ecs.BuildQuery1[Lifetime](w.ECS().Queries(), ecs.NewQueryInfo())
}

func (r *reaper) OnUpdate(w *system.World, dt time.Duration) {
	r.query.Each(func(e ecs.Entity, l *Lifetime) {
		l.Remaining -= dt
		if l.Remaining <= 0 {
			w.ECS().MarkForDestruction(e)
		}
	})
}

// reporter logs world stats every interval frames.
type reporter struct {
	system.Base
	interval uint64
	log      *zap.Logger
}

func newReporter(interval uint64, log *zap.Logger) *reporter {
	return &reporter{Base: system.NewBase("reporter"), interval: interval, log: log}
}

func (r *reporter) OnLateUpdate(w *system.World, _ time.Duration) {
	if r.interval == 0 || w.Frame()%r.interval != 0 {
		return
	}
	st := w.ECS().Stats()
	r.log.Info("world stats",
		zap.Uint64("frame", w.Frame()),
		zap.Int("entities", st.Entities),
		zap.Uint64("minted", st.Minted),
		zap.Int("components", st.Components),
		zap.Int("queries", st.Queries),
		zap.Int("active_systems", len(w.ActiveSystems())),
	)
}

package scripting

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/system"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// LuaSystem runs a script's hook functions as a system. Each script gets its
// own VM. Globals read at load time:
//
//	name      system name (string, optional)
//	requires  array of component type names
//
// Hooks, all optional: on_initialize, on_start, on_enable, on_update(dt),
// on_fixed_update(dt), on_late_update(dt), on_disable, on_destroy. dt is in
// seconds. Script errors are logged and the frame carries on.
type LuaSystem struct {
	system.Base
	vm     *lua.LState
	log    *zap.Logger
	world  *system.World
	closed bool
}

// NewLuaSystem runs src once and reads its declarations. Required component
// types must already be known to the type registry.
func NewLuaSystem(name, src string, log *zap.Logger) (*LuaSystem, error) {
	vm := lua.NewState()
	s := &LuaSystem{vm: vm, log: log}
	s.openHostAPI()

	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("run script: %w", err)
	}

	if n, ok := vm.GetGlobal("name").(lua.LString); ok && n != "" {
		name = string(n)
	}
	s.Base = system.NewBase(name)

	if req, ok := vm.GetGlobal("requires").(*lua.LTable); ok {
		for i := 1; i <= req.Len(); i++ {
			typeName := req.RawGetInt(i).String()
			id, ok := ecs.LookupTypeName(typeName)
			if !ok {
				vm.Close()
				return nil, fmt.Errorf("script %s requires unknown component type %q", name, typeName)
			}
			s.RequireComponent(id)
		}
	}
	s.log = log.With(zap.String("system", name))
	return s, nil
}

// openHostAPI installs the functions scripts can call back into.
func (s *LuaSystem) openHostAPI() {
	s.vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	s.vm.SetGlobal("entity_count", s.vm.NewFunction(func(L *lua.LState) int {
		n := 0
		if s.world != nil {
			n = s.world.ECS().Entities().Count()
		}
		L.Push(lua.LNumber(n))
		return 1
	}))
	s.vm.SetGlobal("has_any", s.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(s.hasAny(L.CheckString(1))))
		return 1
	}))
	s.vm.SetGlobal("count", s.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(s.count(L.CheckString(1))))
		return 1
	}))
	s.vm.SetGlobal("frame", s.vm.NewFunction(func(L *lua.LState) int {
		var f uint64
		if s.world != nil {
			f = s.world.Frame()
		}
		L.Push(lua.LNumber(f))
		return 1
	}))
	s.vm.SetGlobal("log", s.vm.NewFunction(func(L *lua.LState) int {
		s.log.Info(L.CheckString(1))
		return 0
	}))
}

func (s *LuaSystem) hasAny(typeName string) bool {
	if s.world == nil {
		return false
	}
	id, ok := ecs.LookupTypeName(typeName)
	return ok && s.world.ECS().Storage().HasAny(id)
}

func (s *LuaSystem) count(typeName string) int {
	if s.world == nil {
		return 0
	}
	id, ok := ecs.LookupTypeName(typeName)
	if !ok {
		return 0
	}
	t, ok := s.world.ECS().Storage().Erased(id)
	if !ok {
		return 0
	}
	return t.Len()
}

// call invokes a global hook if the script defines one.
func (s *LuaSystem) call(hook string, args ...lua.LValue) {
	if s.closed {
		return
	}
	fn := s.vm.GetGlobal(hook)
	if fn == lua.LNil {
		return
	}
	if err := s.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		s.log.Error("lua hook error", zap.String("hook", hook), zap.Error(err))
	}
}

// Global returns a script global, mostly for inspection from Go.
func (s *LuaSystem) Global(name string) lua.LValue {
	return s.vm.GetGlobal(name)
}

// Close releases the VM. OnDestroy calls it.
func (s *LuaSystem) Close() {
	if !s.closed {
		s.closed = true
		s.vm.Close()
	}
}

func seconds(dt time.Duration) lua.LValue { return lua.LNumber(dt.Seconds()) }

func (s *LuaSystem) OnInitialize(w *system.World) {
	s.world = w
	s.call("on_initialize")
}

func (s *LuaSystem) OnStart(*system.World)  { s.call("on_start") }
func (s *LuaSystem) OnEnable(*system.World) { s.call("on_enable") }

func (s *LuaSystem) OnUpdate(_ *system.World, dt time.Duration) {
	s.call("on_update", seconds(dt))
}

func (s *LuaSystem) OnFixedUpdate(_ *system.World, dt time.Duration) {
	s.call("on_fixed_update", seconds(dt))
}

func (s *LuaSystem) OnLateUpdate(_ *system.World, dt time.Duration) {
	s.call("on_late_update", seconds(dt))
}

func (s *LuaSystem) OnDisable(*system.World) { s.call("on_disable") }

func (s *LuaSystem) OnDestroy(*system.World) {
	s.call("on_destroy")
	s.Close()
}

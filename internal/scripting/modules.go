package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine.* Lua table into L:
//
//	engine.log(msg)     debug-level log line
//	engine.random(n)    integer in [1, n] drawn from the manager's dice source
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetField(engine, "random", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be > 0")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(n) + 1))
		return 1
	}))
	L.SetGlobal("engine", engine)
}

func stringList(L *lua.LState, items []string) *lua.LTable {
	t := L.NewTable()
	for _, s := range items {
		t.Append(lua.LString(s))
	}
	return t
}

func combatantTable(L *lua.LState, c CombatantInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("health", lua.LNumber(c.Health))
	t.RawSetString("max_health", lua.LNumber(c.MaxHealth))
	t.RawSetString("attack", lua.LNumber(c.Attack))
	t.RawSetString("defense", lua.LNumber(c.Defense))
	t.RawSetString("speed", lua.LNumber(c.Speed))
	t.RawSetString("effects", stringList(L, c.Effects))
	t.RawSetString("skills", stringList(L, c.Skills))
	return t
}

func combatantList(L *lua.LState, cs []CombatantInfo) *lua.LTable {
	t := L.NewTable()
	for _, c := range cs {
		t.Append(combatantTable(L, c))
	}
	return t
}

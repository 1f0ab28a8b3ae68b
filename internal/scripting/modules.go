package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
// engine.log, engine.dice, engine.unit and engine.city.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "unit", m.unitModule(L))
	L.SetField(engine, "city", m.cityModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, fn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// engine.dice.intn(n) returns a value in [0, n).
	L.SetField(mod, "intn", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be positive")
			return 0
		}
		L.Push(lua.LNumber(m.roller.Intn(n, "lua")))
		return 1
	}))
	// engine.dice.chance(percent) succeeds with probability percent/100.
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.roller.Chance(L.CheckInt(1), "lua")))
		return 1
	}))
	return mod
}

func (m *Manager) unitModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		if m.GetUnit == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetUnit(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(UnitTable(L, info))
		return 1
	}))
	return mod
}

func (m *Manager) cityModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		if m.GetCity == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetCity(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(CityTable(L, info))
		return 1
	}))
	return mod
}

// UnitTable converts info into a Lua table owned by L.
func UnitTable(L *lua.LState, info *UnitInfo) *lua.LTable {
	t := L.CreateTable(0, 10)
	t.RawSetString("id", lua.LNumber(info.ID))
	t.RawSetString("type", lua.LString(info.Type))
	t.RawSetString("owner", lua.LNumber(info.Owner))
	t.RawSetString("hp", lua.LNumber(info.HP))
	t.RawSetString("max_hp", lua.LNumber(info.MaxHP))
	t.RawSetString("moves_left", lua.LNumber(info.MovesLeft))
	t.RawSetString("veteran", lua.LNumber(info.Veteran))
	t.RawSetString("x", lua.LNumber(info.X))
	t.RawSetString("y", lua.LNumber(info.Y))
	t.RawSetString("task", lua.LString(info.Task))
	return t
}

// CityTable converts info into a Lua table owned by L.
func CityTable(L *lua.LState, info *CityInfo) *lua.LTable {
	t := L.CreateTable(0, 8)
	t.RawSetString("id", lua.LNumber(info.ID))
	t.RawSetString("name", lua.LString(info.Name))
	t.RawSetString("owner", lua.LNumber(info.Owner))
	t.RawSetString("size", lua.LNumber(info.Size))
	t.RawSetString("x", lua.LNumber(info.X))
	t.RawSetString("y", lua.LNumber(info.Y))
	t.RawSetString("danger", lua.LNumber(info.Danger))
	t.RawSetString("urgency", lua.LNumber(info.Urgency))
	return t
}

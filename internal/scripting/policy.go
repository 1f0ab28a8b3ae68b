package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Hook names a policy script may define.
const (
	// HookAdjustWant is called as adjust_want(unit, x, y, want) and returns the new want.
	HookAdjustWant = "adjust_want"
	// HookRampageThresholds is called as rampage_thresholds(unit, adj, move)
	// and returns a table {adj = ..., move = ...}.
	HookRampageThresholds = "rampage_thresholds"
)

// Policy adapts the scripts of a Manager to ai.Policy. Each player's
// scripts live in the scope named after the player; players without one
// use the global scripts, and with no script at all every decision is
// left unchanged.
type Policy struct {
	mgr *Manager
	w   *world.World
}

// NewPolicy creates a Policy consulting mgr about units of w.
//
// Precondition: mgr and w must be non-nil.
func NewPolicy(mgr *Manager, w *world.World) *Policy {
	if mgr == nil {
		panic("scripting.NewPolicy: manager must not be nil")
	}
	if w == nil {
		panic("scripting.NewPolicy: world must not be nil")
	}
	return &Policy{mgr: mgr, w: w}
}

func (p *Policy) scope(owner world.PlayerID) string {
	if pl, ok := p.w.Player(owner); ok {
		return pl.Name
	}
	return globalScope
}

// InfoOf snapshots u for scripts.
func InfoOf(u *world.Unit) *UnitInfo {
	return &UnitInfo{
		ID:        int(u.ID),
		Type:      u.Type.ID,
		Owner:     int(u.Owner),
		HP:        u.HP,
		MaxHP:     u.Type.HP,
		MovesLeft: u.MovesLeft,
		Veteran:   u.Veteran,
		X:         u.Tile.X,
		Y:         u.Tile.Y,
	}
}

// AdjustWant lets the owner's adjust_want hook rescale want. A missing
// hook or a non-numeric result keeps want.
func (p *Policy) AdjustWant(u *world.Unit, tile world.Tile, want ai.Want) ai.Want {
	scope := p.scope(u.Owner)
	if !p.mgr.Has(scope) {
		return want
	}
	info := InfoOf(u)
	ret, err := p.mgr.CallHookWith(scope, HookAdjustWant, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{UnitTable(L, info), lua.LNumber(tile.X), lua.LNumber(tile.Y), lua.LNumber(want)}
	})
	if err != nil {
		return want
	}
	n, ok := ret.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		return want
	}
	return ai.Want(n)
}

// RampageThresholds lets the owner's rampage_thresholds hook replace the
// thresholds. Fields the hook leaves out keep their value.
func (p *Policy) RampageThresholds(u *world.Unit, adj, move int) (int, int) {
	scope := p.scope(u.Owner)
	if !p.mgr.Has(scope) {
		return adj, move
	}
	info := InfoOf(u)
	ret, err := p.mgr.CallHookWith(scope, HookRampageThresholds, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{UnitTable(L, info), lua.LNumber(adj), lua.LNumber(move)}
	})
	if err != nil {
		return adj, move
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		return adj, move
	}
	if n, ok := t.RawGetString("adj").(lua.LNumber); ok {
		adj = int(n)
	}
	if n, ok := t.RawGetString("move").(lua.LNumber); ok {
		move = int(n)
	}
	return adj, move
}

var _ ai.Policy = (*Policy)(nil)

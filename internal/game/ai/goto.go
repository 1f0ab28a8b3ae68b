package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// executePath walks u along path, attacking on the last step. It reports
// whether u survived; a unit that stops short is still alive.
func (e *Engine) executePath(u *world.Unit, path pathfind.Path) bool {
	for i := 1; i < len(path); i++ {
		tile := path[i].Tile
		if u.Tile == tile {
			continue
		}
		var alive bool
		if i == len(path)-1 {
			alive = e.unitAttack(u, tile)
		} else {
			alive = e.unitMove(u, tile)
		}
		if !alive {
			return false
		}
		if u.Tile != tile {
			return true
		}
	}
	return true
}

// followPath walks u along path toward dest without attacking. The unit
// keeps the goto activity while it is still on its way.
func (e *Engine) followPath(u *world.Unit, path pathfind.Path, dest world.Tile) bool {
	if len(path) < 2 {
		return true
	}
	d := dest
	u.GotoTile = &d
	e.setActivity(u, world.ActivityGoto)
	for i := 1; i < len(path); i++ {
		tile := path[i].Tile
		if !e.unitMove(u, tile) {
			return false
		}
		if u.Tile != tile {
			break
		}
	}
	if u.Tile == dest || u.Tile.Adjacent(dest) {
		e.setActivity(u, world.ActivityIdle)
	}
	return true
}

// unitMove steps u onto the adjacent tile. Enemy tiles are left to the
// attack code; u never walks away from a bodyguard that cannot follow.
func (e *Engine) unitMove(u *world.Unit, tile world.Tile) bool {
	if !u.Tile.Adjacent(tile) {
		e.log.Warn("move to a tile that is not adjacent", unitFields(u, zap.Stringer("to", tile))...)
		return true
	}
	if e.w.EnemyUnitAt(u.Owner, tile) {
		return true
	}
	if c := e.w.CityAt(tile); c != nil && e.w.AtWar(u.Owner, c.Owner) {
		return true
	}
	if e.player(u.Owner).IsBarbarian() {
		if info := e.w.Map.At(tile); info != nil && info.Hut {
			return true
		}
	}
	guard := e.guardOf(u)
	if guard != nil && guard.Tile == u.Tile && guard.MovesLeft == 0 {
		e.log.Debug("does not want to leave its bodyguard", unitFields(u)...)
		return true
	}
	if !e.do(u, Action{Kind: ActMove, Tile: tile}) {
		return false
	}
	e.bodyguardFollow(u, tile)
	return true
}

// unitAttack attacks or, when nothing can be attacked, moves onto tile.
func (e *Engine) unitAttack(u *world.Unit, tile world.Tile) bool {
	if !u.Tile.Adjacent(tile) {
		return true
	}
	if u.Activity != world.ActivityIdle {
		e.setActivity(u, world.ActivityIdle)
	}
	kind := ActMove
	if e.combat.CanAttackTile(u, tile) {
		kind = ActAttack
	}
	if !e.do(u, Action{Kind: kind, Tile: tile}) {
		return false
	}
	e.bodyguardFollow(u, tile)
	return true
}

func (e *Engine) bodyguardFollow(u *world.Unit, tile world.Tile) {
	if u.Tile != tile {
		return
	}
	guard := e.guardOf(u)
	if guard == nil || !guard.Tile.Adjacent(tile) || guard.MovesLeft <= 0 {
		return
	}
	if e.w.NonAlliedUnitAt(guard.Owner, tile) {
		return
	}
	e.do(guard, Action{Kind: ActMove, Tile: tile})
}

// gotoIsSane reports whether u can reach tile at all.
func (e *Engine) gotoIsSane(u *world.Unit, tile world.Tile) bool {
	if u.Tile == tile {
		return true
	}
	return e.unitMap(u, 0).Reachable(tile)
}

// unitGoto moves u toward tile along its own path. It reports whether u survived.
func (e *Engine) unitGoto(u *world.Unit, tile world.Tile) bool {
	if u.Tile == tile || u.MovesLeft == 0 {
		return true
	}
	if !e.gotoIsSane(u, tile) {
		e.setActivity(u, world.ActivityIdle)
		return true
	}
	path, ok := e.unitMap(u, 0).Path(tile)
	if !ok {
		return true
	}
	return e.followPath(u, path, tile)
}

// gothere moves u toward dest, by boat when it must. It reports whether
// u is alive and at or next to dest.
func (e *Engine) gothere(u *world.Unit, dest world.Tile) bool {
	if u.Tile == dest || u.MovesLeft <= 0 {
		return true
	}
	bgNeeded := e.gothereBodyguard(u, dest)
	if u.Transported() || !e.gotoIsSane(u, dest) {
		if !e.goByBoat(u, dest, bgNeeded) {
			return false
		}
	}
	if !e.gotoIsSane(u, dest) || u.MovesLeft <= 0 {
		return false
	}
	d := dest
	u.GotoTile = &d
	if !e.unitGoto(u, dest) {
		return false
	}
	if e.Data(u).Ferryboat > 0 && !u.Transported() {
		e.clearBoat(u)
	}
	return u.Tile == dest || u.Tile.Adjacent(dest)
}

// gothereBodyguard decides whether u needs a guard at dest, requesting
// one when it does.
func (e *Engine) gothereBodyguard(u *world.Unit, dest world.Tile) bool {
	owner := e.player(u.Owner)
	if owner.IsBarbarian() {
		e.clearGuard(u)
		return false
	}
	danger := 0
	for _, a := range e.w.UnitsAt(dest) {
		if e.w.Dangerous(u.Owner, a.Owner) {
			danger += attRating(e.rules, a)
		}
	}
	if c := e.w.CityAt(dest); c != nil && e.w.Dangerous(u.Owner, c.Owner) {
		if dt := e.chooseDefenderVersus(c, u); dt != nil {
			danger += typeAttRating(e.rules, dt, 0, ruleset.SingleMove, dt.HP)
		}
	}
	danger *= powerDivider
	danger /= max(u.Type.MoveRate, 1)

	guard := e.guardOf(u)
	if guard == nil || guard.Tile != u.Tile {
		myDef := u.HP * e.rules.DefensePower(u.Type, u.Veteran)
		if danger >= myDef {
			e.requestGuard(u)
			return true
		}
		e.clearGuard(u)
		return false
	}
	return true
}

// chooseDefenderVersus picks the unit type c would build to stop attacker.
func (e *Engine) chooseDefenderVersus(c *world.City, attacker *world.Unit) *ruleset.UnitType {
	var (
		best     *ruleset.UnitType
		bestWant float64
		bestCost = int(^uint(0) >> 1)
	)
	for _, t := range e.rules.UnitTypes() {
		if !t.IsMilitary() || t.Defense == 0 || !e.w.IsNative(t, c.Tile, c.Owner) {
			continue
		}
		def := world.NewVirtualUnit(c.Owner, t, c.Tile, 0)
		defense := e.combat.TotalDefensePower(attacker, def)
		attack := max(e.combat.TotalAttackPower(attacker, def), 1)
		loss := float64(defense*t.HP*t.Firepower) / float64(attack*max(attacker.Type.Firepower, 1))
		want := (loss + max(0, loss-float64(attacker.HP))) / float64(max(t.BuildCost, 1))
		if want > bestWant || (want == bestWant && t.BuildCost <= bestCost) {
			best, bestWant, bestCost = t, want, t.BuildCost
		}
	}
	return best
}

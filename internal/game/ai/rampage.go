package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Rampage thresholds.
const (
	// RampageAnything takes any opportunity.
	RampageAnything = 1
	// RampageHutOrBetter only moves off for huts and free cities.
	RampageHutOrBetter = 99998
	// RampageFreeCityOrBetter only moves off for free cities.
	RampageFreeCityOrBetter = 99999
)

// bodyguardRampageThreshold is how tempting an adjacent kill must be for
// a guard to leave its post.
func (e *Engine) bodyguardRampageThreshold() int {
	return e.cfg.ShieldWeighting * 4
}

// RampageWant is how much u wants to strike tile right now. A negative
// want means u has to move onto tile to profit: an empty enemy city it
// can take or a hut.
func (e *Engine) RampageWant(u *world.Unit, tile world.Tile) Want {
	if e.combat.CanAttackTile(u, tile) {
		def := e.combat.Defender(u, tile)
		if def == nil {
			return 0
		}
		attack := attRatingNow(e.rules, u)
		attack *= attack
		benefit := e.stackCost(u, def)
		loss := u.Type.BuildCost
		if e.w.CityAt(tile) != nil {
			benefit = benefit * u.HP / max(u.Type.HP, 1)
		}
		if attack > 0 && e.isMyTurn(u, def) {
			desire := AvgBenefit(benefit, loss, e.combat.WinChance(u, def), e.cfg.ShieldWeighting)
			return max(desire, 0)
		}
		return 0
	}
	if len(e.w.UnitsAt(tile)) > 0 {
		return 0
	}
	if c := e.w.CityAt(tile); c != nil && e.w.AtWar(u.Owner, c.Owner) && e.rules.CanTakeOver(u.Type) {
		return -RampageFreeCityOrBetter
	}
	if info := e.w.Map.At(tile); info != nil && info.Hut &&
		!e.player(u.Owner).IsBarbarian() && e.w.IsNative(u.Type, tile, u.Owner) {
		return -RampageHutOrBetter
	}
	return 0
}

// stackCost is what the owner of def loses when u beats it. Outside
// cities the whole stack dies.
func (e *Engine) stackCost(u, def *world.Unit) int {
	if e.w.CityAt(def.Tile) != nil {
		return def.Type.BuildCost
	}
	cost := 0
	for _, a := range e.w.UnitsAt(def.Tile) {
		if !e.w.Allied(u.Owner, a.Owner) {
			cost += a.Type.BuildCost
		}
	}
	return cost
}

// isMyTurn reports whether no fellow unit next to def is better suited
// to attack it than u.
func (e *Engine) isMyTurn(u, def *world.Unit) bool {
	val := attRatingNow(e.rules, u)
	for _, t := range e.w.Map.Square(def.Tile, 1) {
		for _, a := range e.w.UnitsAt(t) {
			if a == u || a.Owner != u.Owner {
				continue
			}
			if !e.combat.CanAttackTile(a, def.Tile) || e.combat.Defender(a, def.Tile) != def {
				continue
			}
			d := e.combat.VirtualDefensePower(a.Type, def.Type, def.Owner, def.Tile, false, 0)
			if d == 0 {
				return true
			}
			cur := attRatingNow(e.rules, a) *
				e.combat.VirtualDefensePower(u.Type, def.Type, def.Owner, def.Tile, false, 0) / d
			if cur > val && e.fuzzy(e.player(u.Owner), true) {
				return false
			}
		}
	}
	return true
}

// findRampageTarget finds the best tile u can strike with the moves it
// has left. Adjacent strikes must beat threshAdj, anything needing a move
// threshMove.
func (e *Engine) findRampageTarget(u *world.Unit, threshAdj, threshMove int) (pathfind.Path, bool) {
	owner := e.player(u.Owner)
	handicap := owner.HasHandicap(world.HTargets)
	m := e.unitMap(u, 0)
	positions := m.Positions()
	if len(positions) == 0 {
		return nil, false
	}
	var (
		best    Want
		bestDst *world.Tile
	)
	for _, pos := range positions {
		if pos.Cost-positions[0].Cost > u.MovesLeft {
			break
		}
		if handicap && !owner.Knows(pos.Tile) {
			continue
		}
		want := e.RampageWant(u, pos.Tile)
		thresh := threshAdj
		if !u.Tile.Adjacent(pos.Tile) || want < 0 {
			thresh = threshMove
		}
		if want < 0 {
			want = -want
		}
		if want > best && want > Want(thresh) {
			best = want
			t := pos.Tile
			bestDst = &t
		}
	}
	if bestDst == nil {
		return nil, false
	}
	return m.Path(*bestDst)
}

// Rampage lets u strike opportunistic targets until nothing tempting is
// left within its remaining moves. It reports whether u survived.
//
// Precondition: threshAdj <= threshMove.
// Postcondition: The loop runs at most MovesLeft+1 times.
func (e *Engine) Rampage(u *world.Unit, threshAdj, threshMove int) bool {
	threshAdj, threshMove = e.policy.RampageThresholds(u, threshAdj, threshMove)
	if threshAdj > threshMove {
		threshAdj = threshMove
	}
	// A victor may be dragged onto the tile it cleared.
	threshAdj += (threshMove - threshAdj) * e.cfg.OccupyChance / 100
	for count := u.MovesLeft + 1; count > 0 && u.MovesLeft > 0; count-- {
		path, ok := e.findRampageTarget(u, threshAdj, threshMove)
		if !ok {
			break
		}
		e.log.Debug("rampage", unitFields(u, zap.Stringer("target", path.Dest().Tile))...)
		if !e.executePath(u, path) {
			return false
		}
	}
	return e.alive(u)
}

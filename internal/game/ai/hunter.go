package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// hunterQualify reports whether u hunts enemy units on its own.
func (e *Engine) hunterQualify(u *world.Unit) bool {
	if e.player(u.Owner).IsBarbarian() {
		return false
	}
	return u.Type.HasRole(ruleset.RoleHunter)
}

// juiciness rates the stack around target: the threat it poses and the
// shields it is worth. Units whose loss ends the game and diplomats
// weigh extra.
func (e *Engine) juiciness(target *world.Unit) (threat, cost int) {
	for _, s := range e.w.UnitsAt(target.Tile) {
		threat += e.rules.AttackPower(s.Type, 0, ruleset.SingleMove)
		if s.Type.HasFlag(ruleset.FlagGameLoss) {
			cost += 1000
			threat += 5000
		}
		if s.Type.HasFlag(ruleset.FlagDiplomat) {
			threat += 500
		}
		cost += s.Type.BuildCost
	}
	threat *= 9
	threat += cost
	return threat, cost
}

// manageHunter chases the juiciest prey within HunterRangeTurns turns:
// diplomats, transports and units whose loss ends the game. It returns
// -1 when the prey died and the search should be retried, a positive
// threat when u is busy hunting, and 0 when nothing was worth it.
func (e *Engine) manageHunter(u *world.Unit) int {
	d := e.Data(u)
	limit := e.cfg.HunterRangeTurns * u.Type.MoveFrags()

	var origThreat int
	original, hasOriginal := e.w.Unit(d.Target)
	if hasOriginal {
		origThreat, _ = e.juiciness(original)
	}

	m := e.unitMap(u, 0)
	positions := m.Positions()
	for _, pos := range positions {
		moveCost := pos.Cost - positions[0].Cost
		if moveCost > limit {
			e.log.Debug("gave up finding hunt target", unitFields(u)...)
			return 0
		}
		if e.w.CityAt(pos.Tile) != nil || !e.combat.CanAttackTile(u, pos.Tile) {
			continue
		}
		for _, target := range e.w.UnitsAt(pos.Tile) {
			if !e.w.Dangerous(u.Owner, target.Owner) {
				continue
			}
			td := e.Data(target)
			if td.Hunted[u.Owner] {
				continue
			}
			if !target.Type.HasFlag(ruleset.FlagDiplomat) && target.Type.Capacity == 0 &&
				!target.Type.HasFlag(ruleset.FlagGameLoss) {
				continue
			}
			dist1, dist2 := 0, 0
			if td.CurPos != nil && td.PrevPos != nil {
				dist1 = u.Tile.Distance(*td.CurPos)
				dist2 = u.Tile.Distance(*td.PrevPos)
			}
			if u.Type.MoveRate < target.Type.MoveRate && dist1 >= dist2 {
				e.log.Debug("giving up racing", unitFields(u, zap.Int("prey", int(target.ID)))...)
				continue
			}

			threat, cost := e.juiciness(target)
			if def := e.combat.Defender(u, target.Tile); def != nil {
				cost = int(float64(cost) * e.combat.WinChance(u, def))
			}
			if cost < u.Type.BuildCost {
				continue
			}
			threat /= moveCost + 1
			if !u.IsVirtual() && hasOriginal && original != target && origThreat > threat {
				continue
			}
			if threat < u.Type.BuildCost {
				continue
			}

			e.log.Debug("hunting", unitFields(u,
				zap.Int("prey", int(target.ID)),
				zap.Stringer("prey_tile", target.Tile),
				zap.Int("want", threat))...)
			d.Target = target.ID
			if u.IsVirtual() {
				return threat
			}
			preyTile := target.Tile
			preyID := target.ID
			e.NewTask(u, TaskHunter, &preyTile)

			path, ok := m.Path(preyTile)
			if ok && !e.executePath(u, path) {
				return 0
			}
			if _, alive := e.w.Unit(preyID); !alive {
				e.log.Debug("mission accomplished", unitFields(u)...)
				e.NewTask(u, TaskNone, nil)
				return -1
			}
			d.Done = true
			return threat
		}
	}
	e.log.Debug("ran out of map finding hunt target", unitFields(u)...)
	return 0
}

// huntAgain is the HUNTER handler for units that are not re-evaluated by
// the military code.
func (e *Engine) huntAgain(u *world.Unit) {
	result := e.manageHunter(u)
	if !e.alive(u) {
		return
	}
	if result < 0 {
		e.manageHunter(u)
		return
	}
	if result == 0 && e.Data(u).Task == TaskHunter {
		e.NewTask(u, TaskNone, nil)
	}
}

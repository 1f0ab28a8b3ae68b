package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// AssessDangerPlayer assesses every city of player.
func (e *Engine) AssessDangerPlayer(player world.PlayerID) {
	for _, c := range e.w.CitiesOf(player) {
		e.AssessDanger(c)
	}
}

// dangerHorizon is the number of turns ahead p looks for danger.
func (e *Engine) dangerHorizon(p *world.Player) int {
	switch {
	case p.CPUHog:
		return e.cfg.DangerHorizonCPUHog
	case p.HasHandicap(world.HAssessDangerLimited):
		return e.cfg.DangerHorizonLimited
	default:
		return e.cfg.DangerHorizon
	}
}

// cityDefendBonus is the defend bonus c's buildings give against class.
func (e *Engine) cityDefendBonus(c *world.City, class *ruleset.UnitClass) int {
	bonus := 0
	for _, id := range c.Buildings() {
		if imp, ok := e.rules.Improvement(id); ok {
			bonus += imp.DefendBonusAgainst(class)
		}
	}
	return bonus
}

// AssessDanger computes how threatened c is by every unit of every
// dangerous player and fills the city's scratch: danger, urgency, grave
// danger, wall value, diplomat threat, the danger each unbuilt defensive
// building would remove, and the reevaluated wants of those buildings.
//
// Postcondition: All metrics are non-negative; the result equals the stored Danger.
func (e *Engine) AssessDanger(c *world.City) int {
	owner := e.player(c.Owner)
	data := e.CityData(c)
	data.Assessed = true
	data.DangerReduced = make(map[string]int)
	data.BuildingWant = make(map[string]Want)
	data.GraveDanger = 0
	if owner.HasHandicap(world.HDanger) {
		data.GraveDanger = 1
	}
	data.DiplomatThreat = false
	data.HasDiplomat = false

	// Type specific bonuses of the defenders already present.
	bonusAgainst := make(map[string]int)
	for _, u := range e.w.UnitsAt(c.Tile) {
		if u.Type.HasFlag(ruleset.FlagDiplomat) {
			data.HasDiplomat = true
		}
		for classID, pct := range u.Type.DefenseBonuses {
			if pct > bonusAgainst[classID] {
				bonusAgainst[classID] = pct
			}
		}
	}

	horizon := e.dangerHorizon(owner)
	omniscient := !owner.HasHandicap(world.HMap)
	urgency := 0
	total := 0
	for _, enemy := range e.w.Players() {
		if !e.w.Dangerous(c.Owner, enemy.ID) {
			continue
		}
		rev := e.paths.ReverseMap(c.Tile, enemy.ID, horizon, omniscient)
		for _, u := range e.w.UnitsOf(enemy.ID) {
			carriesOccupiers := e.rules.CarriesOccupiers(u.Type)
			if !carriesOccupiers && !actsHostile(u.Type) {
				continue
			}
			// Units in fog are invisible to a player under the map handicap.
			if !owner.Knows(u.Tile) {
				continue
			}
			vuln, moveTime, ok := e.assessDangerUnit(c, rev, u)
			if !ok {
				continue
			}
			if e.rules.CanTakeOver(u.Type) || carriesOccupiers {
				vuln = max(vuln, 1)
				if moveTime <= 3 {
					urgency++
					if moveTime <= 1 {
						data.GraveDanger++
					}
				}
			}
			defbonus := bonusAgainst[u.Type.Class.ID]
			if defbonus > 100 {
				defbonus = (defbonus + 100) / 2
			}
			vuln = vuln * 100 / (defbonus + 100)

			if actsHostile(u.Type) && moveTime <= 2 {
				data.DiplomatThreat = true
			}
			vuln *= vuln
			if moveTime > 1 {
				vuln /= moveTime
			}
			if b := e.bestDefenseBuilding(c, u.Type.Class); b != nil {
				data.DangerReduced[b.ID] += vuln / max(moveTime, 1)
			}
			total += vuln
		}
	}

	if total > 0 {
		data.WallValue = 90
	} else {
		data.WallValue = 5
	}
	if data.GraveDanger > 0 {
		urgency += 10 * data.GraveDanger
	}
	data.Urgency = urgency

	defense := e.assessDefenseIgWall(c)
	for id, reduced := range data.DangerReduced {
		value := Want(c.BuildingWant[id])
		data.BuildingWant[id] = ReevaluateBuilding(value, urgency, reduced, defense)
	}

	if owner.HasHandicap(world.HDanger) && total == 0 {
		data.Danger = 1
	} else {
		data.Danger = total
	}
	e.log.Debug("city danger",
		zap.String("city", c.Name),
		zap.Int("danger", data.Danger),
		zap.Int("urgency", data.Urgency),
		zap.Int("grave_danger", data.GraveDanger),
		zap.Int("wallvalue", data.WallValue),
	)
	return data.Danger
}

// assessDangerUnit returns the raw vulnerability of c to u and the turns u
// needs to strike. ok is false when u cannot reach c at all.
func (e *Engine) assessDangerUnit(c *world.City, rev *pathfind.Reverse, u *world.Unit) (vuln, moveTime int, ok bool) {
	t := u.Type
	moveTime = -1
	if t.HasFlag(ruleset.FlagParatroopers) && t.ParatroopersRange > 0 {
		moveTime = c.Tile.Distance(u.Tile) / t.ParatroopersRange
	}
	if turns, reach := rev.Turns(u); reach && (moveTime < 0 || moveTime > turns) {
		moveTime = turns
	}
	if ferry, carried := e.w.Unit(u.TransportedBy); carried {
		if turns, reach := rev.Turns(ferry); reach && (moveTime < 0 || moveTime > turns) {
			moveTime = turns
			if !t.Class.AttackNonNative {
				moveTime++
			}
		}
	}
	if moveTime < 0 {
		return 0, 0, false
	}
	if !e.w.IsNative(t, c.Tile, u.Owner) && !t.Class.AttackNonNative {
		return 0, moveTime, true
	}
	nativeNear := false
	for _, n := range e.w.Map.Square(c.Tile, 1) {
		if t.Class.IsNativeTo(e.w.Map.Terrain(n)) {
			nativeNear = true
			break
		}
	}
	if !nativeNear || !t.CanAttack() || !t.IsMilitary() {
		return 0, moveTime, true
	}
	dmod := 100 + e.cityDefendBonus(c, t.Class)
	return attRating(e.rules, u) * 100 / max(dmod, 1), moveTime, true
}

// bestDefenseBuilding is the unbuilt improvement of c with the largest
// defend bonus against class, or nil.
func (e *Engine) bestDefenseBuilding(c *world.City, class *ruleset.UnitClass) *ruleset.Improvement {
	var (
		best      *ruleset.Improvement
		bestBonus int
	)
	for _, imp := range e.rules.Improvements() {
		if c.HasBuilding(imp.ID) {
			continue
		}
		if imp.CoastalOnly && !e.w.Map.NearOcean(c.Tile) {
			continue
		}
		if b := imp.DefendBonusAgainst(class); b > bestBonus {
			best, bestBonus = imp, b
		}
	}
	return best
}

// ReevaluateBuilding raises the want of a defensive building in a city
// under threat. danger is the danger the building would remove.
//
// Postcondition: value is returned unchanged when it is 0 or danger <= 0.
func ReevaluateBuilding(value Want, urgency, danger, defense int) Want {
	if value == 0 || danger <= 0 {
		return value
	}
	value = max(value, Want(100+urgency))
	switch {
	case urgency > 0 && danger > defense*2:
		value += 100
	case defense != 0 && danger > defense:
		value = max(Want(danger*100/defense), value)
	}
	return value
}

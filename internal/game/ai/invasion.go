package ai

import (
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

type invasionKind int

const (
	invasionAttack invasionKind = iota
	invasionOccupy
)

// reinforcementsCostAndValue sums the attack rating and build cost of the
// units allied with u standing on or next to tile.
func (e *Engine) reinforcementsCostAndValue(u *world.Unit, tile world.Tile) (value, cost int) {
	for _, t := range e.w.Map.Square(tile, 1) {
		for _, a := range e.w.UnitsAt(t) {
			if a == u || !e.w.Allied(u.Owner, a.Owner) {
				continue
			}
			if v := attRating(e.rules, a); v != 0 {
				value += v
				cost += a.Type.BuildCost
			}
		}
	}
	return value, cost
}

// hasDefense reports whether c holds a live military unit able to defend it.
func (e *Engine) hasDefense(c *world.City) bool {
	for _, u := range e.w.UnitsAt(c.Tile) {
		if !u.Type.IsMilitary() || u.HP == 0 || e.rules.DefensePower(u.Type, u.Veteran) == 0 {
			continue
		}
		if u.Type.Class.IsNativeTo(e.w.Map.Terrain(c.Tile)) {
			return true
		}
	}
	return false
}

func singleInvader(data *CityData, t *ruleset.UnitType, kind invasionKind) {
	attacks := t.MoveRate
	if t.HasFlag(ruleset.FlagOneAttack) {
		attacks = 1
	}
	data.Invasion.Attack += attacks
	if kind == invasionOccupy {
		data.Invasion.Occupy++
	}
}

// invasionFunct marks the hostile cities within radius of u's position
// (or of its destination when dest is set) as invasion targets of u and
// its attacking cargo. Around its position u only counts against
// undefended cities.
func (e *Engine) invasionFunct(u *world.Unit, dest bool, radius int, kind invasionKind) {
	center := u.Tile
	if dest {
		if u.GotoTile == nil {
			return
		}
		center = *u.GotoTile
	}
	for _, t := range e.w.Map.Square(center, radius) {
		c := e.w.CityAt(t)
		if c == nil || !e.w.Dangerous(u.Owner, c.Owner) {
			continue
		}
		if !dest && e.hasDefense(c) {
			continue
		}
		data := e.CityData(c)
		singleInvader(data, u.Type, kind)
		for _, cargo := range e.w.Cargo(u.ID) {
			if !isAttacker(cargo.Type) {
				continue
			}
			k := invasionAttack
			if e.rules.CanTakeOver(cargo.Type) {
				k = invasionOccupy
			}
			singleInvader(data, cargo.Type, k)
		}
	}
}

func (e *Engine) invasionKindOf(u *world.Unit) invasionKind {
	if e.rules.CanTakeOver(u.Type) {
		return invasionOccupy
	}
	return invasionAttack
}

// hostileTo reports whether u may consider owner's cities and units as
// targets: real units only target players they are at war with, virtual
// units any potentially hostile player.
func (e *Engine) hostileTo(u *world.Unit, owner world.PlayerID) bool {
	if u.IsVirtual() {
		return e.w.Dangerous(u.Owner, owner)
	}
	return e.w.AtWar(u.Owner, owner)
}

// updateInvasions rebuilds the invasion counters and reinforcement sums
// of every city u may target from the positions and destinations of u's
// fellow units.
func (e *Engine) updateInvasions(u *world.Unit) {
	for _, p := range e.w.Players() {
		if !e.hostileTo(u, p.ID) {
			continue
		}
		for _, c := range e.w.CitiesOf(p.ID) {
			data := e.CityData(c)
			data.Attack, data.BCost = e.reinforcementsCostAndValue(u, c.Tile)
			data.Invasion = Invasion{}
		}
	}
	for _, a := range e.w.UnitsOf(u.Owner) {
		if a == u {
			continue
		}
		switch {
		case isAttacker(a.Type):
			kind := e.invasionKindOf(a)
			if a.Activity == world.ActivityGoto && a.GotoTile != nil {
				e.invasionFunct(a, true, 0, kind)
				if c := e.w.CityAt(*a.GotoTile); c != nil {
					data := e.CityData(c)
					data.Attack += attRating(e.rules, a)
					data.BCost += a.Type.BuildCost
				}
			}
			e.invasionFunct(a, false, a.Type.MoveRate, kind)
		case e.Data(a).Passenger != 0 && a.Tile != u.Tile:
			if a.Activity == world.ActivityGoto && a.GotoTile != nil {
				e.invasionFunct(a, true, 1, invasionOccupy)
			}
			e.invasionFunct(a, false, 2, invasionOccupy)
		}
	}
}

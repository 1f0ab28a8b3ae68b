package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// manageParatrooper drops u from a city onto a city that needs it, an
// undefended enemy city or a spot next to weak enemies. Away from cities
// it heads for the nearest safe one.
func (e *Engine) manageParatrooper(u *world.Unit) {
	c := e.w.CityAt(u.Tile)

	if !e.Rampage(u, RampageAnything, RampageFreeCityOrBetter) {
		return
	}
	if u.HP < u.Type.HP/2 && c != nil {
		e.log.Debug("recovering hit points", unitFields(u)...)
		return
	}
	if u.MovesLeft == 0 {
		return
	}
	if c != nil && len(e.w.UnitsAt(u.Tile)) == 1 {
		e.log.Debug("defending the city", unitFields(u)...)
		return
	}

	if e.canParadrop(u) {
		dest, ok := e.paradropTarget(u)
		if !ok {
			return
		}
		if !e.do(u, Action{Kind: ActParadrop, Tile: dest}) {
			return
		}
		if u.Tile == dest {
			e.Rampage(u, RampageAnything, RampageAnything)
		}
		return
	}

	if c != nil {
		e.log.Debug("waiting in a city for next turn", unitFields(u)...)
		return
	}
	safe := e.FindNearestSafeCity(u)
	if safe == nil {
		e.log.Debug("no city to recover in", unitFields(u)...)
		e.ManageMilitary(u)
		return
	}
	e.log.Debug("going to city", unitFields(u, zap.String("city", safe.Name))...)
	e.unitGoto(u, safe.Tile)
}

// canParadrop reports whether u may jump this turn: from an allied city
// with full moves.
func (e *Engine) canParadrop(u *world.Unit) bool {
	c := e.w.CityAt(u.Tile)
	if c == nil || !e.w.Allied(u.Owner, c.Owner) || u.Transported() {
		return false
	}
	return u.Type.ParatroopersRange > 0 && u.MovesLeft >= u.Type.MoveFrags()
}

// paradropTarget picks the drop tile: an empty own city in danger first,
// an empty enemy city second, otherwise the land tile next to the most
// profitable victims.
func (e *Engine) paradropTarget(u *world.Unit) (world.Tile, bool) {
	owner := e.player(u.Owner)
	square := e.w.Map.Square(u.Tile, u.Type.ParatroopersRange)

	best := 0
	var bestTile *world.Tile
	pick := func(t world.Tile, val int) {
		if val > best {
			best = val
			tt := t
			bestTile = &tt
		}
	}

	for _, t := range square {
		if !owner.Knows(t) {
			continue
		}
		c := e.w.CityAt(t)
		if c != nil && c.Owner == u.Owner && len(e.w.UnitsAt(t)) == 0 {
			pick(t, c.Size*e.CityData(c).Urgency)
		}
	}
	if bestTile != nil {
		e.log.Debug("jumping to protect city", unitFields(u, zap.Stringer("goal", *bestTile), zap.Int("want", best))...)
		return *bestTile, true
	}

	var m *pathfind.Map
	for _, t := range square {
		c := e.w.CityAt(t)
		if c == nil || !e.w.AtWar(u.Owner, c.Owner) || len(e.w.UnitsAt(t)) != 0 || !owner.Knows(t) {
			continue
		}
		if m == nil {
			m = e.unitMap(u, 0)
		}
		val := c.Size
		if !m.Reachable(t) {
			val++
		}
		pick(t, val)
	}
	if bestTile != nil {
		e.log.Debug("jumping into enemy city", unitFields(u, zap.Stringer("goal", *bestTile), zap.Int("want", best))...)
		return *bestTile, true
	}

	for _, t := range square {
		if e.w.Map.IsOceanic(t) || !owner.Knows(t) {
			continue
		}
		c := e.w.CityAt(t)
		if c != nil && !e.w.Allied(c.Owner, u.Owner) {
			continue
		}
		if c == nil && len(e.w.UnitsAt(t)) > 0 {
			continue
		}
		for _, target := range e.w.Map.Neighbors(t) {
			if e.w.Map.IsOceanic(target) || !owner.Knows(target) || !e.combat.CanAttackTile(u, target) {
				continue
			}
			def := e.combat.Defender(u, target)
			if def == nil {
				continue
			}
			val := 0
			if e.w.CityAt(target) == nil {
				for _, victim := range e.w.UnitsAt(target) {
					val += victim.HP * 100
				}
			} else {
				val = def.HP * 100
			}
			val = int(float64(val) * e.combat.WinChance(u, def))
			if terrain := e.w.Map.Terrain(t); terrain != nil {
				val += terrain.DefenseBonus / 10
			}
			val -= u.HP * 100
			pick(t, val)
		}
	}
	if bestTile != nil {
		e.log.Debug("jumping to attack adjacent units", unitFields(u, zap.Stringer("goal", *bestTile), zap.Int("want", best))...)
		return *bestTile, true
	}
	return world.Tile{}, false
}

package ai

import (
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// maxDefense caps the linear defense sum of one city.
const maxDefense = 1 << 15

// hasDefenseBuilding reports whether c holds any building with a defend bonus.
func (e *Engine) hasDefenseBuilding(c *world.City) bool {
	for _, id := range c.Buildings() {
		imp, ok := e.rules.Improvement(id)
		if !ok {
			continue
		}
		for _, pct := range imp.DefendBonus {
			if pct > 0 {
				return true
			}
		}
	}
	return false
}

func (e *Engine) baseAssessDefenseUnit(c *world.City, u *world.Unit, igwall, quadratic bool, wallValue int) int {
	if !u.Type.IsMilitary() {
		return 0
	}
	defense := e.combat.VirtualDefensePower(nil, u.Type, u.Owner, u.Tile, true, u.Veteran) * u.HP
	fp := u.Type.Firepower
	if u.Type.HasFlag(ruleset.FlagBadCityDefender) {
		defense *= min(fp, 1)
		defense /= 2
	} else {
		defense *= fp
	}
	defense /= powerDivider
	if quadratic {
		defense *= defense
	}
	if c != nil && !igwall && e.hasDefenseBuilding(c) {
		defense *= wallValue
		defense /= 10
	}
	return defense
}

// AssessDefenseQuadratic is the square of the summed defense of the
// units in c, walls included.
//
// Postcondition: Returns a value in [0, (1<<15)^2].
func (e *Engine) AssessDefenseQuadratic(c *world.City) int {
	walls := 0
	for walls*walls < e.CityData(c).WallValue*10 {
		walls++
	}
	defense := 0
	for _, u := range e.w.UnitsAt(c.Tile) {
		defense += e.baseAssessDefenseUnit(c, u, false, false, walls)
	}
	if defense > maxDefense {
		defense = maxDefense
	}
	return defense * defense
}

// AssessDefenseUnit is the squared defense u contributes to c.
func (e *Engine) AssessDefenseUnit(c *world.City, u *world.Unit, igwall bool) int {
	return e.baseAssessDefenseUnit(c, u, igwall, true, e.CityData(c).WallValue)
}

// AssessDefense sums AssessDefenseUnit over the units in c.
func (e *Engine) AssessDefense(c *world.City) int {
	return e.assessDefense(c, false)
}

func (e *Engine) assessDefenseIgWall(c *world.City) int {
	return e.assessDefense(c, true)
}

func (e *Engine) assessDefense(c *world.City, igwall bool) int {
	defense := 0
	for _, u := range e.w.UnitsAt(c.Tile) {
		defense += e.AssessDefenseUnit(c, u, igwall)
	}
	return defense
}

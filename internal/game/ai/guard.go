package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Guard links: a guard's Charge names a unit or a city; a guarded unit's
// Bodyguard names its guard. A unit has at most one guard, a city may
// have many.

// guardOf returns the live bodyguard of charge, or nil.
func (e *Engine) guardOf(charge *world.Unit) *world.Unit {
	id := e.Data(charge).Bodyguard
	if id <= 0 {
		return nil
	}
	g, ok := e.w.Unit(world.UnitID(id))
	if !ok {
		return nil
	}
	return g
}

// chargeUnit returns the live unit guard protects, or nil.
func (e *Engine) chargeUnit(guard *world.Unit) *world.Unit {
	id := e.Data(guard).Charge
	if id <= 0 {
		return nil
	}
	u, ok := e.w.Unit(world.UnitID(id))
	if !ok {
		return nil
	}
	return u
}

// chargeCity returns the city guard protects, or nil.
func (e *Engine) chargeCity(guard *world.Unit) *world.City {
	id := e.Data(guard).Charge
	if id <= 0 {
		return nil
	}
	c, ok := e.w.City(world.CityID(id))
	if !ok {
		return nil
	}
	return c
}

// clearCharge drops guard's assignment.
func (e *Engine) clearCharge(guard *world.Unit) {
	if charge := e.chargeUnit(guard); charge != nil {
		e.Data(charge).Bodyguard = BodyguardNone
	}
	e.Data(guard).Charge = BodyguardNone
}

// clearGuard drops the guard of charge.
func (e *Engine) clearGuard(charge *world.Unit) {
	d := e.Data(charge)
	if guard := e.guardOf(charge); guard != nil {
		gd := e.Data(guard)
		if gd.Charge == int(charge.ID) {
			gd.Charge = BodyguardNone
		}
	}
	d.Bodyguard = BodyguardNone
}

// assignGuardUnit links guard to charge, replacing earlier links of both.
//
// Precondition: charge and guard are distinct units of the same owner.
func (e *Engine) assignGuardUnit(charge, guard *world.Unit) {
	if charge == guard || charge.Owner != guard.Owner {
		e.log.Warn("refusing guard assignment", unitFields(guard, zap.Int("charge", int(charge.ID)))...)
		return
	}
	e.clearCharge(guard)
	e.clearGuard(charge)
	e.Data(guard).Charge = int(charge.ID)
	e.Data(charge).Bodyguard = int(guard.ID)
}

// assignGuardCity makes guard protect c.
func (e *Engine) assignGuardCity(c *world.City, guard *world.Unit) {
	d := e.Data(guard)
	if d.Charge > 0 && d.Charge != int(c.ID) {
		e.clearCharge(guard)
	}
	d.Charge = int(c.ID)
}

// requestGuard asks for a new bodyguard for u.
func (e *Engine) requestGuard(u *world.Unit) {
	e.clearGuard(u)
	e.Data(u).Bodyguard = BodyguardWanted
}

func (e *Engine) guardWanted(u *world.Unit) bool {
	return e.Data(u).Bodyguard == BodyguardWanted
}

func (e *Engine) hasGuard(u *world.Unit) bool {
	return e.Data(u).Bodyguard > 0
}

func (e *Engine) hasCharge(u *world.Unit) bool {
	return e.Data(u).Charge != BodyguardNone
}

// updateCharge drops a charge that was destroyed or changed hands.
func (e *Engine) updateCharge(guard *world.Unit) {
	d := e.Data(guard)
	chargeUnit := e.chargeUnit(guard)
	chargeCity := e.chargeCity(guard)
	if chargeUnit == nil && chargeCity == nil && d.Charge > 0 {
		d.Charge = BodyguardNone
		return
	}
	switch {
	case chargeUnit != nil && chargeUnit.Owner != guard.Owner:
		e.clearCharge(guard)
	case chargeCity != nil && chargeCity.Owner != guard.Owner:
		e.clearCharge(guard)
	}
}

// isDefender reports whether t is a defender free to roam and guard.
func isDefender(t *ruleset.UnitType) bool {
	return t.HasRole(ruleset.RoleDefendGood)
}

// LookForCharge finds the unit or city most in need of guard within
// ChargeSearchTurns turns of movement. It returns the relative benefit of
// the best candidate, in percent of the guard's toughness.
//
// Postcondition: At most one of the returned unit and city is non-nil.
func (e *Engine) LookForCharge(guard *world.Unit) (Want, *world.Unit, *world.City) {
	toughness := defRatingBasicSquared(e.rules, guard)
	if toughness == 0 {
		return 0, nil, nil
	}
	owner := e.player(guard.Owner)
	rate := max(guard.Type.MoveFrags(), 1)
	maxCost := e.cfg.ChargeSearchTurns * rate
	gd := e.Data(guard)

	var (
		bestUnit *world.Unit
		bestCity *world.City
		bestData *CityData
		bestDef  = -1
	)
	positions := e.unitMap(guard, 0).Positions()
	for _, pos := range positions {
		cost := pos.Cost - positions[0].Cost
		if cost > maxCost {
			break
		}
		for _, buddy := range e.w.UnitsAt(pos.Tile) {
			bt := buddy.Type
			if buddy == guard ||
				!e.rules.CanFollow(guard.Type, bt) ||
				buddy.Owner != guard.Owner ||
				!e.guardWanted(buddy) ||
				bt.MoveFrags() > guard.Type.MoveFrags() ||
				e.rules.DefensePower(bt, 0) >= e.rules.DefensePower(guard.Type, 0) ||
				(bt.CanAttack() && bt.Capacity == 0 && e.rules.AttackPower(bt, 0, ruleset.SingleMove) <= e.rules.AttackPower(guard.Type, 0, ruleset.SingleMove)) {
				continue
			}
			def := toughness - defRatingBasicSquared(e.rules, buddy)
			if def <= 0 {
				continue
			}
			if bt.Capacity == 0 {
				def >>= uint(cost / (2 * rate))
			}
			if def > bestDef {
				bestUnit, bestCity, bestDef = buddy, nil, def
			}
		}

		c := e.w.CityAt(pos.Tile)
		if c == nil || c.Owner != guard.Owner || !e.fuzzy(owner, true) {
			continue
		}
		data := e.CityData(c)
		if data.Urgency <= 0 {
			continue
		}
		if bestData != nil &&
			(bestData.GraveDanger > 0 ||
				bestData.Urgency > data.Urgency ||
				((bestData.Danger > data.Danger || gd.Task == TaskDefendHome) && data.GraveDanger == 0)) {
			continue
		}
		def := data.Danger - e.AssessDefenseQuadratic(c)
		if def <= 0 {
			continue
		}
		def >>= uint(cost / (2 * rate))
		if def > bestDef && e.fuzzy(owner, true) {
			bestCity, bestUnit, bestDef, bestData = c, nil, def, data
		}
	}
	if bestDef < 0 {
		return 0, nil, nil
	}
	return Want(bestDef * 100 / toughness), bestUnit, bestCity
}

package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ManageUnit runs one unit through the handler for its kind. When a unit
// has several qualifying kinds the first match below wins.
//
// Precondition: u must be owned by a player of the game.
// Postcondition: u may be destroyed on return; callers re-resolve it by id.
func (e *Engine) ManageUnit(u *world.Unit) {
	d := e.Data(u)

	if u.HasOrders {
		e.log.Debug("under human orders, leaving alone", unitFields(u)...)
		e.NewTask(u, TaskNone, nil)
		d.Done = true
		return
	}

	if d.Bodyguard > 0 && e.guardOf(u) == nil {
		e.log.Debug("lost bodyguard, asking for a new one", unitFields(u)...)
		e.requestGuard(u)
	}

	if u.MovesLeft <= 0 {
		d.Done = true
		return
	}

	t := u.Type
	switch {
	case t.HasFlag(ruleset.FlagDiplomat):
		if e.diplomats != nil && e.diplomats.ManageDiplomat(u) {
			return
		}
		if e.alive(u) {
			e.manageFallback(u)
		}
	case t.HasFlag(ruleset.FlagWorkers) || t.HasFlag(ruleset.FlagCities):
		e.manageSettler(u)
	case t.HasFlag(ruleset.FlagHelpWonder) || t.HasFlag(ruleset.FlagTradeRoute):
		e.manageCaravan(u)
	case t.HasFlag(ruleset.FlagParatroopers) && t.ParatroopersRange > 0:
		e.manageParatrooper(u)
	case e.rules.IsFerry(t) && d.Task != TaskHunter:
		e.manageFerryboat(u)
	case t.Fuel > 0 && d.Task != TaskEscort:
		d.Done = true
	case t.Class != nil && t.Class.HPLossPct > 0:
		d.Done = true
	case !isSpecial(t):
		e.log.Debug("recruited for the military", unitFields(u)...)
		e.ManageMilitary(u)
	default:
		e.manageFallback(u)
	}
}

// isSpecial reports whether t is of no use in combat.
func isSpecial(t *ruleset.UnitType) bool {
	return !t.IsMilitary() || !t.CanAttack()
}

// manageFallback explores and, with nothing left to explore, stays home.
func (e *Engine) manageFallback(u *world.Unit) {
	switch e.Explore(u) {
	case ExploreDied:
	case ExploreMoved:
		e.log.Debug("now exploring", unitFields(u)...)
	default:
		e.log.Debug("fell through all unit tasks, defending", unitFields(u)...)
		e.NewTask(u, TaskDefendHome, nil)
		e.militaryDefend(u)
	}
}

// manageSettler hands workers and founders to the worker advisor. A
// founder already on its way to a site keeps BUILD_CITY.
func (e *Engine) manageSettler(u *world.Unit) {
	d := e.Data(u)
	d.Done = true
	if d.Task == TaskNone {
		e.NewTask(u, TaskAutoWorker, nil)
	}
	e.log.Debug("left to the worker advisor", unitFields(u, zap.Stringer("task", d.Task))...)
}

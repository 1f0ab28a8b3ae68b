package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ManageMilitary runs one turn-slice for a military unit: the hunter
// check, job selection, the handler of the resulting task and finally
// sentry or fortify.
func (e *Engine) ManageMilitary(u *world.Unit) {
	d := e.Data(u)
	owner := e.player(u.Owner)

	// Escorting fuel units move with their charge.
	if d.Task == TaskEscort && u.Type.Fuel > 0 {
		return
	}
	if (u.Activity == world.ActivitySentry || u.Activity == world.ActivityFortified) &&
		owner.HasHandicap(world.HAway) {
		d.Done = true
		return
	}

	e.clearBoat(u)

	if e.hunterQualify(u) {
		result := e.manageHunter(u)
		if !e.alive(u) {
			return
		}
		switch {
		case result < 0:
			e.manageHunter(u)
			return
		case result > 0:
			return
		case d.Task == TaskHunter:
			e.NewTask(u, TaskNone, nil)
		}
	} else if d.Task == TaskHunter {
		e.NewTask(u, TaskNone, nil)
	}

	e.FindJob(u)

	switch d.Task {
	case TaskAutoWorker, TaskBuildCity, TaskHunter:
		e.log.Warn("military unit with a civilian task", unitFields(u, zap.Stringer("task", d.Task))...)
	default:
		if !e.dispatch(d.Task, u) {
			return
		}
	}

	if !e.alive(u) {
		return
	}
	c := e.w.CityAt(u.Tile)
	switch {
	case d.Ferryboat > 0 && e.unitOnTile(world.UnitID(d.Ferryboat), u.Tile):
		e.setActivity(u, world.ActivitySentry)
	case c != nil || u.Activity == world.ActivityIdle:
		if c == nil || d.Task == TaskDefendHome {
			if u.Activity == world.ActivityIdle || u.Activity == world.ActivitySentry {
				e.setActivity(u, world.ActivityFortifying)
			}
		} else {
			e.setActivity(u, world.ActivitySentry)
		}
	}
}

func (e *Engine) unitOnTile(id world.UnitID, tile world.Tile) bool {
	other, ok := e.w.Unit(id)
	return ok && other.Tile == tile
}

// FindJob gives u a specific job when it has one: barbarians stay
// primitive, escorts check their charge still needs them, damaged units
// recover and good defenders look for something to guard.
func (e *Engine) FindJob(u *world.Unit) {
	owner := e.player(u.Owner)
	if owner.IsBarbarian() {
		if owner.Barbarian == world.LandBarbarian {
			e.setActivity(u, world.ActivityPillage)
		}
		e.NewTask(u, TaskNone, nil)
		return
	}

	d := e.Data(u)
	if d.Task == TaskEscort || d.Task == TaskDefendHome {
		e.updateCharge(u)
	}
	if e.hasCharge(u) && d.Task == TaskEscort {
		charge := e.chargeUnit(u)
		city := e.chargeCity(u)
		keep := false
		if charge != nil && (e.hasGuard(charge) || e.guardWanted(charge)) &&
			defRatingBasic(e.rules, u) > defRatingBasic(e.rules, charge) {
			keep = true
		}
		if city != nil && city.Owner == u.Owner {
			data := e.CityData(city)
			if data.Urgency != 0 && data.Danger > e.AssessDefenseQuadratic(city) {
				keep = true
			}
		}
		if keep {
			return
		}
		e.NewTask(u, TaskNone, nil)
	}

	if (d.Task == TaskRecover && u.HP < u.Type.HP) ||
		float64(u.HP) < float64(u.Type.HP)*e.cfg.RecoverHPFraction {
		e.log.Debug("set to hp recovery", unitFields(u, zap.Int("hp", u.HP))...)
		e.NewTask(u, TaskRecover, nil)
		return
	}

	if isDefender(u.Type) {
		_, charge, city := e.LookForCharge(u)
		switch {
		case city != nil:
			tile := city.Tile
			e.NewTask(u, TaskEscort, &tile)
			e.assignGuardCity(city, u)
			e.log.Debug("going to defend city", unitFields(u, zap.String("city", city.Name))...)
		case charge != nil:
			tile := charge.Tile
			e.NewTask(u, TaskEscort, &tile)
			e.assignGuardUnit(charge, u)
			e.log.Debug("going to defend unit", unitFields(u, zap.Int("charge", int(charge.ID)))...)
		}
	}
}

// militaryAttack is the ATTACK and NONE handler. It rampages first, then
// searches for targets the hard way until out of moves, and finally
// retreats, explores or defends.
func (e *Engine) militaryAttack(u *world.Unit) {
	owner := e.player(u.Owner)
	if u.Activity == world.ActivityPillage && owner.IsBarbarian() && e.chance(2) {
		return
	}
	if !e.Rampage(u, RampageAnything, RampageAnything) {
		return
	}
	if u.MovesLeft <= 0 {
		return
	}

	for ct := e.cfg.AttackLoopCap; ct > 0 && u.MovesLeft > 0; ct-- {
		start := u.Tile
		target := e.FindSomethingToKill(u)
		dest := target.Tile
		if dest == u.Tile {
			e.log.Debug("no worthy target", unitFields(u)...)
			break
		}
		if !u.Tile.Adjacent(dest) || !e.combat.CanAttackTile(u, dest) {
			d := dest
			u.GotoTile = &d
			e.setActivity(u, world.ActivityGoto)
			if target.Path != nil && !e.followPath(u, target.Path, dest) {
				return
			}
			if target.ByBoat {
				e.goByBoat(u, dest, false)
				return
			}
			if u.MovesLeft <= 0 {
				return
			}
			if u.Tile == dest {
				break
			}
		}
		if u.Tile.Adjacent(dest) {
			if !e.unitAttack(u, dest) {
				return
			}
		} else if u.Tile != start {
			e.Rampage(u, RampageAnything, RampageAnything)
			return
		}
	}

	if u.MovesLeft <= 0 {
		return
	}
	safe := e.FindNearestSafeCity(u)
	switch {
	case safe != nil && (e.rules.IsFerry(u.Type) || float64(u.HP) < float64(u.Type.HP)*e.cfg.RetreatHPFraction):
		e.log.Debug("heading to nearest safe house", unitFields(u, zap.String("city", safe.Name))...)
		if !e.unitGoto(u, safe.Tile) {
			return
		}
	case !owner.IsBarbarian():
		if e.Explore(u) == ExploreDied {
			return
		}
	default:
		e.militaryAttackBarbarian(u)
	}

	if e.alive(u) && u.MovesLeft > 0 {
		e.militaryDefend(u)
	}
}

// militaryAttackBarbarian sends a barbarian toward the closest city it
// could take, boarding a boat when it stands on one.
func (e *Engine) militaryAttackBarbarian(u *world.Unit) {
	target := e.closestForeignCity(u)
	if target == nil {
		e.log.Debug("barbarian found no target city", unitFields(u)...)
		return
	}
	if e.w.IsNative(u.Type, u.Tile, u.Owner) && !u.Transported() {
		e.gothere(u, target.Tile)
		return
	}
	var ferry *world.Unit
	if t, ok := e.w.Unit(u.TransportedBy); ok {
		if e.isBoatFree(t, u, 0) {
			ferry = t
		}
	} else {
		for _, a := range e.w.UnitsAt(u.Tile) {
			if e.isBoatFree(a, u, 1) && e.do(u, Action{Kind: ActLoad, Target: a.ID}) && u.TransportedBy == a.ID {
				ferry = a
				break
			}
		}
	}
	if ferry == nil {
		e.log.Debug("unable to find barbarian ferry", unitFields(u)...)
		return
	}
	e.gotoAmphibious(ferry, u, target.Tile)
}

// closestForeignCity is the nearest city u's owner is at war with.
func (e *Engine) closestForeignCity(u *world.Unit) *world.City {
	var (
		best *world.City
		dist int
	)
	for _, c := range e.w.AllCities() {
		if !e.w.AtWar(u.Owner, c.Owner) {
			continue
		}
		if d := u.Tile.SqDistance(c.Tile); best == nil || d < dist {
			best, dist = c, d
		}
	}
	return best
}

// closestOwnCity is the nearest city of u's owner where u can stand.
func (e *Engine) closestOwnCity(u *world.Unit) *world.City {
	var (
		best *world.City
		dist int
	)
	for _, c := range e.w.CitiesOf(u.Owner) {
		if !u.Type.Class.IsNativeTo(e.w.Map.Terrain(c.Tile)) && !e.rules.IsSeaClass(u.Type.Class) {
			continue
		}
		if d := u.Tile.SqDistance(c.Tile); best == nil || d < dist {
			best, dist = c, d
		}
	}
	return best
}

// militaryDefend is the DEFEND_HOME handler: u heads for its charge city,
// or the city it stands in, the closest own city or its home city.
func (e *Engine) militaryDefend(u *world.Unit) {
	city := e.chargeCity(u)
	if city == nil || city.Owner != u.Owner {
		city = e.w.CityAt(u.Tile)
		e.clearCharge(u)
	}
	if city == nil {
		city = e.closestOwnCity(u)
	}
	if city == nil {
		city = e.homeCity(u)
	}
	if !e.Rampage(u, e.bodyguardRampageThreshold()*5, RampageFreeCityOrBetter) {
		return
	}
	if city == nil {
		e.log.Debug("defending nothing", unitFields(u)...)
		return
	}
	if u.Tile == city.Tile {
		e.Data(u).Done = true
		return
	}
	e.gothere(u, city.Tile)
}

// militaryBodyguard is the ESCORT handler. A guard whose charge is on
// its way somewhere meets it at the destination when it gets there first.
func (e *Engine) militaryBodyguard(u *world.Unit) {
	charge := e.chargeUnit(u)
	city := e.chargeCity(u)
	var meet world.Tile
	switch {
	case charge != nil && charge.Owner == u.Owner:
		meet = charge.Tile
		if charge.GotoTile != nil {
			goal := *charge.GotoTile
			me2them := u.Tile.Distance(charge.Tile)
			me2goal := u.Tile.Distance(goal)
			them2goal := charge.Tile.Distance(goal)
			myRate := max(u.Type.MoveRate, 1)
			theirRate := max(charge.Type.MoveRate, 1)
			if me2goal < me2them ||
				(me2goal/myRate < them2goal/theirRate && me2goal/myRate < me2them/myRate && myRate > theirRate) {
				meet = goal
			}
		}
	case city != nil && city.Owner == u.Owner:
		meet = city.Tile
	default:
		e.log.Debug("lost its charge", unitFields(u)...)
		e.NewTask(u, TaskNone, nil)
		return
	}

	if u.Tile != meet {
		if e.gotoIsSane(u, meet) {
			if !e.gothere(u, meet) && !e.alive(u) {
				return
			}
		} else {
			e.log.Debug("can not meet charge", unitFields(u, zap.Stringer("meet", meet))...)
			e.NewTask(u, TaskNone, nil)
		}
	}
	if !e.alive(u) {
		return
	}
	if e.Rampage(u, e.bodyguardRampageThreshold(), RampageFreeCityOrBetter) && u.Tile == meet {
		e.Data(u).Done = true
	}
}

// hpRegen is the share of max hit points in percent that c restores each turn.
func (e *Engine) hpRegen(c *world.City) int {
	regen := 0
	for _, id := range c.Buildings() {
		if imp, ok := e.rules.Improvement(id); ok {
			regen += imp.HPRegen
		}
	}
	return regen
}

// FindNearestSafeCity is the allied city u reaches cheapest. Cities that
// do not speed up healing count three times as far.
func (e *Engine) FindNearestSafeCity(u *world.Unit) *world.City {
	var (
		best     *world.City
		bestCost = -1
	)
	positions := e.unitMap(u, 0).Positions()
	for _, pos := range positions {
		cost := pos.Cost - positions[0].Cost
		if bestCost >= 0 && cost > bestCost {
			break
		}
		c := e.w.CityAt(pos.Tile)
		if c == nil || !e.w.Allied(u.Owner, c.Owner) {
			continue
		}
		if e.hpRegen(c) == 0 {
			cost *= 3
		}
		if bestCost < 0 || cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return best
}

// hpGain is the number of hit points u regains at the end of this turn.
func (e *Engine) hpGain(u *world.Unit) int {
	full := u.Type.HP
	if c := e.w.CityAt(u.Tile); c != nil && e.w.Allied(u.Owner, c.Owner) {
		return full/3 + full*e.hpRegen(c)/100
	}
	if u.Type.Class.HPLossPct > 0 {
		return -full * u.Type.Class.HPLossPct / 100
	}
	if u.Moved {
		return 0
	}
	return full / 10
}

// manageHitpointRecovery is the RECOVER handler: u rests in a city
// until healed, defending it opportunistically.
func (e *Engine) manageHitpointRecovery(u *world.Unit) {
	if e.w.CityAt(u.Tile) != nil {
		if !e.Rampage(u, RampageAnything, RampageFreeCityOrBetter) {
			return
		}
	} else {
		if !e.Rampage(u, RampageFreeCityOrBetter, RampageFreeCityOrBetter) {
			return
		}
		safe := e.FindNearestSafeCity(u)
		if safe == nil {
			e.log.Debug("no city to recover in", unitFields(u)...)
			e.NewTask(u, TaskNone, nil)
			e.militaryAttack(u)
			return
		}
		e.log.Debug("going to recover", unitFields(u, zap.String("city", safe.Name))...)
		if !e.unitGoto(u, safe.Tile) {
			return
		}
	}

	noRecovery := u.HP >= u.Type.HP
	if !noRecovery {
		gain := e.hpGain(u)
		noRecovery = gain < 0 || (gain == 0 && !u.Moved)
	}
	if noRecovery {
		e.log.Debug("ready to fight again", unitFields(u)...)
		e.NewTask(u, TaskNone, nil)
		return
	}
	e.Data(u).Done = true
}

// militaryExplore is the EXPLORE handler.
func (e *Engine) militaryExplore(u *world.Unit) {
	if e.Explore(u) == ExploreDied {
		return
	}
	e.Data(u).Done = u.MovesLeft <= 0
}

// chance reports true with probability 1/n.
func (e *Engine) chance(n int) bool {
	if e.rng == nil {
		return false
	}
	return e.rng.Intn(n) == 0
}

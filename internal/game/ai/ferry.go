package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ferryAbandonBoss marks a ferry whose passenger in charge left it.
const ferryAbandonBoss = -2

// clearBoat releases u's claim on its ferry.
func (e *Engine) clearBoat(u *world.Unit) {
	d := e.Data(u)
	if d.Ferryboat > 0 {
		if ferry, ok := e.w.Unit(world.UnitID(d.Ferryboat)); ok {
			if fd := e.Data(ferry); fd.Passenger == int(u.ID) {
				fd.Passenger = FerryAvailable
			}
		}
	}
	d.Ferryboat = FerryNone
}

// requestBoat records that u waits on the coast for a boat and ends its turn.
func (e *Engine) requestBoat(u *world.Unit) {
	d := e.Data(u)
	if u.IsVirtual() || d.Ferryboat == FerryWanted {
		e.clearBoat(u)
	}
	e.log.Debug("requests a boat", unitFields(u)...)
	d.Ferryboat = FerryWanted
	d.Done = true
}

// psngrMeetBoat links u and ferry as passenger in charge and boat.
func (e *Engine) psngrMeetBoat(u, ferry *world.Unit) {
	if u.Owner != ferry.Owner {
		return
	}
	e.clearBoat(u)
	e.Data(u).Ferryboat = int(ferry.ID)
	e.Data(ferry).Passenger = int(u.ID)
}

func (e *Engine) makeAvailable(ferry *world.Unit) {
	e.Data(ferry).Passenger = FerryAvailable
}

// isBoatFree reports whether boat can take u with cap free places left
// over: an own seagoing transport that is either available or already
// serving u.
func (e *Engine) isBoatFree(boat, u *world.Unit, cap int) bool {
	if boat == u || boat.Owner != u.Owner || boat.HasOrders {
		return false
	}
	if !e.rules.CanCarry(boat.Type, u.Type) || e.rules.IsLandClass(boat.Type.Class) {
		return false
	}
	passenger := e.Data(boat).Passenger
	if passenger != FerryAvailable && passenger != int(u.ID) {
		return false
	}
	if e.w.FreeCapacity(boat) < cap {
		return false
	}
	return boat.Type.Class.HPLossPct == 0 && boat.Type.Fuel == 0
}

// availBoats counts the own ferries nobody claimed.
func (e *Engine) availBoats(owner world.PlayerID) int {
	n := 0
	for _, u := range e.w.UnitsOf(owner) {
		if e.rules.IsFerry(u.Type) && e.Data(u).Passenger == FerryAvailable {
			n++
		}
	}
	return n
}

// findBoat looks for the free boat u can meet soonest and returns its id
// with u's path to the meeting point, or 0.
func (e *Engine) findBoat(u *world.Unit, cap int) (int, pathfind.Path) {
	if e.availBoats(u.Owner) <= 0 && e.Data(u).Ferryboat <= 0 {
		return 0, nil
	}
	m := e.unitMap(u, 0)
	var (
		bestID    int
		bestTurns = -1
		meet      world.Tile
	)
	for _, pos := range m.Positions() {
		if bestTurns >= 0 && pos.Turn > bestTurns {
			break
		}
		for _, t := range e.w.Map.Square(pos.Tile, 1) {
			for _, boat := range e.w.UnitsAt(t) {
				if !e.isBoatFree(boat, u, cap) {
					continue
				}
				if bestTurns < 0 || pos.Turn < bestTurns {
					bestID, bestTurns, meet = int(boat.ID), pos.Turn, pos.Tile
				}
			}
		}
	}
	if bestID == 0 {
		return 0, nil
	}
	path, _ := m.Path(meet)
	return bestID, path
}

// findBoatNearby is a free boat u can board from where it stands, or 0.
func (e *Engine) findBoatNearby(u *world.Unit, cap int) int {
	for _, t := range e.w.Map.Square(u.Tile, 1) {
		for _, boat := range e.w.UnitsAt(t) {
			if e.isBoatFree(boat, u, cap) {
				return int(boat.ID)
			}
		}
	}
	return 0
}

// goByBoat brings u to dest over water: it walks to the coast, boards a
// free boat or requests one, and rides it to a landing next to dest. It
// reports whether u got to or next to dest.
func (e *Engine) goByBoat(u *world.Unit, dest world.Tile, withBodyguard bool) bool {
	if !u.Transported() {
		cap := 1
		if withBodyguard {
			cap = 2
		}
		if !e.w.Map.NearOcean(u.Tile) {
			id, path := e.findBoat(u, cap)
			if id <= 0 {
				e.log.Debug("cannot find any boats", unitFields(u)...)
				e.Data(u).Done = true
				return false
			}
			if path != nil && !e.executePath(u, path) {
				return false
			}
		}
		if !e.w.Map.NearOcean(u.Tile) {
			return false
		}
		id := e.findBoatNearby(u, cap)
		if id <= 0 {
			e.requestBoat(u)
			return false
		}
		ferry, _ := e.w.Unit(world.UnitID(id))
		e.psngrMeetBoat(u, ferry)
		if u.Tile.Adjacent(ferry.Tile) {
			if !e.unitMove(u, ferry.Tile) {
				return false
			}
		}
		if u.TransportedBy != ferry.ID {
			if u.Tile != ferry.Tile || !e.do(u, Action{Kind: ActLoad, Target: ferry.ID}) || u.TransportedBy != ferry.ID {
				e.log.Debug("couldn't board boat", unitFields(u, zap.Int("ferry", id))...)
				return false
			}
		}
	}

	ferry, ok := e.w.Unit(u.TransportedBy)
	if !ok {
		return true
	}
	if !e.isBoatFree(ferry, u, 0) {
		e.log.Debug("cannot command boat", unitFields(u, zap.Int("boss", e.Data(ferry).Passenger))...)
		return false
	}
	e.psngrMeetBoat(u, ferry)
	d := dest
	u.GotoTile = &d

	if guard := e.guardOf(u); guard != nil && guard.Tile != u.Tile {
		switch {
		case !e.gotoIsSane(guard, u.Tile) || !e.unitGoto(guard, u.Tile):
			e.requestGuard(u)
		case guard.MovesLeft <= 0:
			e.log.Debug("waiting for bodyguard", unitFields(u)...)
			e.Data(u).Done = true
			return false
		default:
			e.log.Debug("ditching useless bodyguard", unitFields(u)...)
			e.requestGuard(u)
			e.NewTask(guard, TaskNone, nil)
		}
	}
	if guard := e.guardOf(u); guard != nil && guard.Tile == u.Tile && !guard.Transported() {
		e.do(guard, Action{Kind: ActLoad, Target: ferry.ID})
	}
	if !e.gotoAmphibious(ferry, u, dest) {
		return false
	}
	if u.Tile == dest {
		e.setActivity(u, world.ActivityIdle)
		return true
	}
	e.Data(u).Done = true
	return false
}

// gotoAmphibious sails ferry to a landing for dest and puts passenger
// ashore. It reports whether passenger survived.
func (e *Engine) gotoAmphibious(ferry, passenger *world.Unit, dest world.Tile) bool {
	ferryMap := e.unitMap(ferry, 0)
	ferryDest, beach, ok := e.FindBeachhead(passenger.Owner, ferryMap, dest, passenger.Type)
	if !ok {
		e.log.Debug("no landing found", unitFields(passenger, zap.Stringer("dest", dest))...)
		return true
	}
	if ferry.Tile != ferryDest {
		if path, ok := ferryMap.Path(ferryDest); ok {
			if !e.followPath(ferry, path, ferryDest) {
				return e.alive(passenger)
			}
		}
	}
	if !e.alive(passenger) {
		return false
	}
	if ferry.Tile != ferryDest || passenger.MovesLeft <= 0 || !passenger.Tile.Adjacent(beach) {
		return true
	}
	if beach == dest {
		return e.unitAttack(passenger, dest)
	}
	if !e.unitMove(passenger, beach) {
		return false
	}
	if passenger.Tile == beach && passenger.MovesLeft > 0 {
		if passenger.Tile.Adjacent(dest) && e.combat.CanAttackTile(passenger, dest) {
			return e.unitAttack(passenger, dest)
		}
		return e.unitGoto(passenger, dest)
	}
	return true
}

// findCargo points ferry at the closest own unit waiting for it.
func (e *Engine) findCargo(ferry *world.Unit) bool {
	waiting := false
	for _, u := range e.w.UnitsOf(ferry.Owner) {
		if e.Data(u).Ferryboat == FerryWanted {
			waiting = true
			break
		}
	}
	if !waiting {
		return false
	}
	for _, pos := range e.unitMap(ferry, 0).Positions() {
		for _, t := range e.w.Map.Square(pos.Tile, 1) {
			for _, a := range e.w.UnitsAt(t) {
				if a == ferry || a.Owner != ferry.Owner {
					continue
				}
				fb := e.Data(a).Ferryboat
				if fb != FerryWanted && fb != int(ferry.ID) {
					continue
				}
				e.log.Debug("found cargo", unitFields(ferry, zap.Int("cargo", int(a.ID)))...)
				goal := pos.Tile
				ferry.GotoTile = &goal
				e.psngrMeetBoat(a, ferry)
				return true
			}
		}
	}
	return false
}

// manageFerryboat lets the passenger in charge drive the boat, appoints a
// new one from the cargo when needed, and otherwise sends the empty boat
// to pick up waiting units, explore or go home.
func (e *Engine) manageFerryboat(u *world.Unit) {
	owner := e.player(u.Owner)
	if u.HP < u.Type.HP {
		if c := e.w.CityAt(u.Tile); c != nil {
			e.log.Debug("ferry recovering hit points", unitFields(u, zap.String("city", c.Name))...)
			e.Data(u).Done = true
			return
		}
	}
	if owner.IsBarbarian() && len(e.w.Cargo(u.ID)) == 0 {
		e.do(u, Action{Kind: ActDisband})
		return
	}

	d := e.Data(u)
	bossID := d.Passenger
	for rounds := len(e.w.Cargo(u.ID)) + 1; rounds > 0; rounds-- {
		if d.Passenger > 0 {
			boss, ok := e.w.Unit(world.UnitID(d.Passenger))
			if !ok || u.Tile.Distance(boss.Tile) > 1 {
				d.Passenger = ferryAbandonBoss
			}
		}
		if d.Passenger == FerryAvailable || d.Passenger == ferryAbandonBoss {
			var candidate *world.Unit
			for _, a := range e.w.Cargo(u.ID) {
				if a.Owner != u.Owner {
					continue
				}
				candidate = a
				if e.Data(a).Task != TaskEscort {
					break
				}
			}
			if candidate != nil {
				bossID = int(candidate.ID)
				e.psngrMeetBoat(candidate, u)
			}
		}
		if d.Passenger <= 0 {
			break
		}
		boss, ok := e.w.Unit(world.UnitID(bossID))
		if !ok {
			break
		}
		if boss.Type.HasFlag(ruleset.FlagWorkers) || boss.Type.HasFlag(ruleset.FlagCities) {
			return
		}
		e.log.Debug("passing control to passenger", unitFields(u, zap.Int("boss", bossID))...)
		e.ManageUnit(boss)
		if !e.alive(u) || u.MovesLeft <= 0 {
			return
		}
		if e.alive(boss) {
			if boss.Tile == u.Tile {
				e.Data(boss).Done = true
				return
			}
			if d.Passenger == bossID && len(e.w.Cargo(u.ID)) != 0 {
				d.Passenger = ferryAbandonBoss
			}
		}
		if d.Passenger != bossID && d.Passenger != ferryAbandonBoss {
			bossID = d.Passenger
		}
		if len(e.w.Cargo(u.ID)) == 0 {
			break
		}
	}
	if d.Passenger == ferryAbandonBoss {
		d.Passenger = bossID
	}

	if isAttacker(u.Type) && u.MovesLeft > 0 {
		e.NewTask(u, TaskNone, nil)
		e.log.Debug("passing ferry over to attack code", unitFields(u)...)
		e.ManageMilitary(u)
		return
	}

	e.makeAvailable(u)
	e.setActivity(u, world.ActivityIdle)
	e.NewTask(u, TaskNone, nil)

	if e.findCargo(u) && u.GotoTile != nil {
		goal := *u.GotoTile
		if e.unitGoto(u, goal) && (u.Tile == goal || u.Tile.Adjacent(goal)) {
			if cargo, ok := e.w.Unit(world.UnitID(d.Passenger)); ok && cargo != u {
				e.ManageUnit(cargo)
			}
		}
		return
	}

	switch e.Explore(u) {
	case ExploreDied:
		return
	case ExploreMoved:
	default:
		d.Done = true
	}
	if !e.alive(u) || u.MovesLeft <= 0 {
		return
	}
	if safe := e.FindNearestSafeCity(u); safe != nil {
		d.Done = true
		e.NewTask(u, TaskNone, nil)
		e.log.Debug("no work, going home", unitFields(u, zap.String("city", safe.Name))...)
		e.unitGoto(u, safe.Tile)
	}
}

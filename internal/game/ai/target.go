package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Target is the outcome of a target search.
type Target struct {
	Want Want
	// Tile is the target tile, or the unit's own tile when nothing was found.
	Tile world.Tile
	// MoveTime is the delay the want was discounted by: the arrival turn,
	// counting the current turn as the first.
	MoveTime int
	// Path leads to Tile, or to the boat when the trip goes by sea. It is
	// nil when the unit is already there or no path is known.
	Path pathfind.Path
	// Ferry is the boat to take, or nil when the unit walks or needs a new boat.
	Ferry     *world.Unit
	FerryType *ruleset.UnitType
	// ByBoat marks targets reached over water.
	ByBoat bool
}

// FindBeachhead finds where a boat searched by ferryMap should stop to
// land cargo of type cargo next to dest. Cities need a free land tile
// next to them unless the cargo attacks from the boat.
//
// Postcondition: ok is false when no suitable landing exists.
func (e *Engine) FindBeachhead(owner world.PlayerID, ferryMap *pathfind.Map, dest world.Tile, cargo *ruleset.UnitType) (ferryDest, beach world.Tile, ok bool) {
	best := -1
	if e.w.CityAt(dest) == nil || cargo.Class.AttackNonNative {
		beach = dest
		for _, t := range e.w.Map.Neighbors(dest) {
			pos, reach := ferryMap.Position(t)
			if reach && (best < 0 || pos.Cost < best) {
				ferryDest, best = t, pos.Cost
			}
		}
		return ferryDest, beach, best >= 0
	}
	checked := map[world.Tile]bool{dest: true}
	for _, b := range e.w.Map.Neighbors(dest) {
		if !e.w.IsNative(cargo, b, owner) {
			continue
		}
		for _, t := range e.w.Map.Neighbors(b) {
			if checked[t] || e.w.NonAlliedUnitAt(owner, t) {
				continue
			}
			checked[t] = true
			pos, reach := ferryMap.Position(t)
			if reach && (best < 0 || pos.Cost < best) {
				ferryDest, beach, best = t, b, pos.Cost
			}
		}
	}
	return ferryDest, beach, best >= 0
}

// bestFerryType is the ferry type a player would build for land units.
func (e *Engine) bestFerryType() *ruleset.UnitType {
	var best *ruleset.UnitType
	for _, t := range e.rules.UnitTypes() {
		if !e.rules.IsFerry(t) {
			continue
		}
		if best == nil || t.Capacity > best.Capacity ||
			(t.Capacity == best.Capacity && t.MoveRate > best.MoveRate) {
			best = t
		}
	}
	return best
}

// boatMeetTurns is the number of turns u needs to stand next to boat.
func boatMeetTurns(unitMap *pathfind.Map, boat world.Tile) (int, bool) {
	if turns, ok := unitMap.Turns(boat); ok {
		return turns, true
	}
	best := -1
	for _, pos := range unitMap.Positions() {
		if pos.Tile.Adjacent(boat) && (best < 0 || pos.Turn < best) {
			best = pos.Turn
		}
	}
	return best, best >= 0
}

// FindSomethingToKill picks the enemy city or unit u most wants to attack.
// A virtual unit (id 0) evaluates what a newly built unit could do and
// considers every potentially hostile player; a real unit only players
// it is at war with.
//
// Postcondition: Want <= 0 means no target; Tile is then u's tile unless a
// virtual unit found a target worth only its ferry.
func (e *Engine) FindSomethingToKill(u *world.Unit) Target {
	res := Target{Tile: u.Tile}
	attackValue := attRating(e.rules, u)
	if attackValue == 0 {
		return res
	}
	owner := e.player(u.Owner)
	handicap := owner.HasHandicap(world.HTargets)

	e.updateInvasions(u)

	unhap := false
	if c := e.w.CityAt(u.Tile); c != nil && (u.IsVirtual() || c.ID == u.HomeCity) {
		unhap = c.MilitaryUnhappy > 0
	}
	bcost := u.Type.BuildCost
	bcostBal := BuildCostBalanced(u.Type)
	sw := e.cfg.ShieldWeighting
	tw := e.cfg.TradeWeighting

	unitMap := e.unitMap(u, 0)

	var (
		ferry    *world.Unit
		boatType *ruleset.UnitType
		ferryMap *pathfind.Map
		harbor   bool
	)
	if e.rules.IsLandClass(u.Type.Class) {
		if t, ok := e.w.Unit(u.TransportedBy); ok && e.isBoatFree(t, u, 0) {
			ferry = t
		}
		if ferry == nil {
			if id, _ := e.findBoat(u, 1); id > 0 {
				ferry, _ = e.w.Unit(world.UnitID(id))
			}
		}
		if u.IsVirtual() && e.w.Map.NearOcean(u.Tile) {
			harbor = true
		}
	}
	if ferry != nil {
		boatType = ferry.Type
		ferryMap = e.unitMap(ferry, 0)
	} else {
		boatType = e.bestFerryType()
		if boatType != nil && harbor {
			ferryMap = e.paths.TypeMap(boatType, u.Owner, u.Tile, e.params(u.Owner, 0))
		}
	}
	canOccupy := e.rules.CanTakeOver(u.Type)

	var (
		best     Want
		bk       Want
		gotoDest *world.Tile
	)
	pick := func(tile world.Tile, moveTime int, byBoat bool) {
		res.Tile = tile
		res.MoveTime = max(1, moveTime)
		res.ByBoat = byBoat
		res.Ferry, res.FerryType = nil, nil
		dest := tile
		if byBoat {
			res.Ferry, res.FerryType = ferry, boatType
			if ferry != nil {
				dest = ferry.Tile
			}
		}
		gotoDest = &dest
	}

	for _, enemy := range e.w.Players() {
		if !e.hostileTo(u, enemy.ID) {
			continue
		}
		for _, acity := range e.w.CitiesOf(enemy.ID) {
			atile := acity.Tile
			if !e.w.IsNative(u.Type, atile, u.Owner) && !u.Type.Class.AttackNonNative {
				continue
			}
			if handicap && !owner.Knows(atile) {
				continue
			}
			var moveTime int
			goByBoat := false
			if turns, ok := unitMap.Turns(atile); ok {
				moveTime = turns
			} else if ferryMap == nil {
				continue
			} else {
				dest, beach, ok := e.FindBeachhead(u.Owner, ferryMap, atile, u.Type)
				if !ok {
					continue
				}
				pos, ok := ferryMap.Position(dest)
				if !ok {
					continue
				}
				moveTime = pos.Turn
				if dest != beach {
					moveTime++
				}
				if ferry != nil && ferry.Tile != u.Tile {
					meet, ok := boatMeetTurns(unitMap, ferry.Tile)
					if !ok {
						continue
					}
					moveTime += meet
				}
				goByBoat = true
			}

			var (
				vuln    int
				benefit int
			)
			defender := (*world.Unit)(nil)
			if e.combat.CanAttackTile(u, atile) {
				defender = e.combat.Defender(u, atile)
			}
			if defender != nil {
				vuln = e.unitDefRatingSquared(u, defender)
				benefit = defender.Type.BuildCost
			}
			if moveTime > 1 {
				if dt := e.chooseDefenderVersus(acity, u); dt != nil {
					if v := e.unittypeDefRatingSquared(u.Type, dt, enemy.ID, atile, false, 0); v > vuln {
						vuln = v
						benefit = dt.BuildCost
					}
				}
			}

			data := e.CityData(acity)
			victims := len(e.w.UnitsAt(atile))
			reserves := data.Invasion.Attack - victims
			if u.IsVirtual() {
				if u.Type.HasFlag(ruleset.FlagOneAttack) {
					reserves++
				} else {
					reserves += u.Type.MoveRate
				}
			}
			if reserves > 0 && (canOccupy || data.Invasion.Occupy > 0) {
				benefit += data.Worth * reserves / 5
			}
			attack := attackValue + data.Attack
			attack *= attack

			var want Want
			switch {
			case !canOccupy && defender == nil:
				want = 0
			case moveTime > e.cfg.MaxTargetMoveTime:
				want = 0
			case canOccupy && data.Invasion.Occupy == 0 && (data.Invasion.Attack > 0 || victims == 0):
				want = Want(bcost * sw)
			default:
				want = KillDesire(Want(benefit), attack, bcost+data.BCost, vuln, victims+1, sw)
			}
			if unhap {
				want -= Want(moveTime * (sw + 2*tw))
			} else {
				want -= Want(moveTime * sw)
			}
			needFerry := 0
			if goByBoat && ferry == nil && boatType != nil {
				needFerry = boatType.BuildCost
			}
			want = e.militaryAmortize(u, want, max(1, moveTime), bcostBal+needFerry)

			if want <= 0 && u.IsVirtual() && best <= 0 {
				bkE := e.militaryAmortize(u, Want(benefit*sw), max(1, moveTime), bcostBal+needFerry)
				if bkE > bk {
					pick(atile, moveTime, goByBoat)
					bk = bkE
				}
			}
			want = e.policy.AdjustWant(u, atile, want)
			if want > best && e.fuzzy(owner, true) {
				best = want
				pick(atile, moveTime, goByBoat)
			}
		}

		attack := attRatingSquared(e.rules, u)
		for _, aunit := range e.w.UnitsOf(enemy.ID) {
			atile := aunit.Tile
			if e.w.CityAt(atile) != nil {
				continue
			}
			if handicap && !owner.Knows(atile) {
				continue
			}
			if !actsHostile(aunit.Type) && u.IsVirtual() {
				continue
			}
			if !e.combat.CanAttackTile(u, atile) || e.combat.Defender(u, atile) != aunit {
				continue
			}
			pos, ok := unitMap.Position(atile)
			if !ok {
				continue
			}
			vuln := e.unitDefRatingSquared(u, aunit)
			benefit := aunit.Type.BuildCost
			moveTime := pos.Turn
			var want Want
			if moveTime <= e.cfg.MaxTargetMoveTime {
				want = KillDesire(Want(benefit), attack, bcost, vuln, 1, sw)
				want -= Want(moveTime * sw)
				if unhap {
					want -= Want(2 * moveTime * tw)
				}
			}
			want = e.militaryAmortize(u, want, max(1, moveTime), bcostBal)
			want = e.policy.AdjustWant(u, atile, want)
			if want > best && e.fuzzy(owner, true) {
				best = want
				pick(atile, moveTime, false)
			}
		}
	}

	if gotoDest != nil && *gotoDest != u.Tile {
		if path, ok := unitMap.Path(*gotoDest); ok {
			res.Path = path
		}
	}
	res.Want = best
	if !u.IsVirtual() {
		e.log.Debug("target search", unitFields(u,
			zap.Stringer("target", res.Tile),
			zap.Float64("want", float64(best)),
			zap.Int("move_time", res.MoveTime),
			zap.Bool("by_boat", res.ByBoat))...)
	}
	return res
}

package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// tradeMinDist is the shortest distance between two cities that may
// trade with each other.
const tradeMinDist = 9

// manageCaravan is the TRADE and WONDER handler. A caravan with no
// destination picks the best wonder to help or trade partner; one with a
// destination checks it is still good and keeps going.
func (e *Engine) manageCaravan(u *world.Unit) {
	t := u.Type
	if !t.HasFlag(ruleset.FlagHelpWonder) && !t.HasFlag(ruleset.FlagTradeRoute) {
		return
	}
	d := e.Data(u)
	home := e.homeCity(u)

	var (
		dest   *world.City
		wonder bool
	)
	if d.Task == TaskTrade || d.Task == TaskWonder {
		var target *world.City
		if u.GotoTile != nil {
			target = e.w.CityAt(*u.GotoTile)
		}
		wonder = d.Task == TaskWonder
		if e.caravanDestValid(u, home, target, wonder) {
			dest = target
		} else {
			e.log.Debug("caravan destination invalid", unitFields(u)...)
			e.NewTask(u, TaskNone, nil)
		}
	}

	if d.Task == TaskNone {
		var want Want
		dest, wonder, want = e.caravanDestination(u, home)
		if dest != nil {
			task := TaskTrade
			if wonder {
				task = TaskWonder
			}
			tile := dest.Tile
			e.NewTask(u, task, &tile)
			e.log.Debug("caravan destination chosen", unitFields(u,
				zap.String("city", dest.Name),
				zap.Stringer("task", task),
				zap.Float64("want", float64(want)))...)
		}
	}

	if dest == nil {
		e.log.Debug("caravan has nothing to do", unitFields(u)...)
		return
	}
	e.caravanGoto(u, dest, wonder)
}

// canHelpWonder reports whether u may add its shields to the wonder c is building.
func (e *Engine) canHelpWonder(u *world.Unit, c *world.City) bool {
	if !u.Type.HasFlag(ruleset.FlagHelpWonder) || c.Owner != u.Owner || c.Wonder == "" {
		return false
	}
	imp, ok := e.rules.Improvement(c.Wonder)
	return ok && c.ShieldStock < imp.BuildCost
}

// canTrade reports whether u may open a route between home and c.
func (e *Engine) canTrade(u *world.Unit, home, c *world.City) bool {
	if !u.Type.HasFlag(ruleset.FlagTradeRoute) || home == nil || home.ID == c.ID {
		return false
	}
	if home.TradePartner[c.ID] || c.TradePartner[home.ID] {
		return false
	}
	return home.Tile.Distance(c.Tile) >= tradeMinDist && !e.w.AtWar(u.Owner, c.Owner)
}

func (e *Engine) caravanDestValid(u *world.Unit, home, c *world.City, wonder bool) bool {
	if c == nil || !e.w.Allied(u.Owner, c.Owner) {
		return false
	}
	if wonder {
		return e.canHelpWonder(u, c)
	}
	return e.canTrade(u, home, c)
}

// tradeRouteValue is the trade a route between a and b brings in.
// Routes abroad are worth twice as much.
func tradeRouteValue(a, b *world.City) int {
	v := (a.Tile.Distance(b.Tile) + 10) * (a.Surplus.Trade + b.Surplus.Trade) / 24
	if a.Owner != b.Owner {
		v *= 2
	}
	return max(v, 0)
}

// caravanDestination picks the reachable city where u does the most good.
// Half the time only allied cities are considered as trade partners.
func (e *Engine) caravanDestination(u *world.Unit, home *world.City) (*world.City, bool, Want) {
	alliedOnly := e.chance(2)
	m := e.unitMap(u, 0)

	var (
		best       *world.City
		bestWonder bool
		bestWant   Want
	)
	for _, c := range e.w.AllCities() {
		turns, ok := m.Turns(c.Tile)
		if !ok {
			continue
		}
		if e.canHelpWonder(u, c) {
			imp, _ := e.rules.Improvement(c.Wonder)
			shields := min(u.Type.BuildCost, imp.BuildCost-c.ShieldStock)
			want := Amortize(e.shieldWant(shields)+Want(c.BuildingWant[c.Wonder]), turns)
			if want > bestWant {
				best, bestWonder, bestWant = c, true, want
			}
		}
		if !e.canTrade(u, home, c) || (alliedOnly && !e.w.Allied(u.Owner, c.Owner)) {
			continue
		}
		want := Amortize(Want(tradeRouteValue(home, c)*e.cfg.TradeWeighting), turns)
		if want > bestWant {
			best, bestWonder, bestWant = c, false, want
		}
	}
	return best, bestWonder, bestWant
}

// caravanGoto takes u to dest and, once there, helps the wonder or opens
// the trade route.
func (e *Engine) caravanGoto(u *world.Unit, dest *world.City, wonder bool) {
	if u.Tile != dest.Tile && u.MovesLeft > 0 {
		e.gothere(u, dest.Tile)
		if !e.alive(u) {
			return
		}
	}
	if u.Tile.Distance(dest.Tile) > 1 {
		return
	}
	if u.Transported() {
		e.clearBoat(u)
	}
	home := e.homeCity(u)
	switch {
	case wonder && e.canHelpWonder(u, dest):
		e.log.Debug("helping build wonder", unitFields(u, zap.String("city", dest.Name))...)
		e.do(u, Action{Kind: ActHelpWonder, City: dest.ID})
	case e.canTrade(u, home, dest):
		e.log.Debug("creating trade route", unitFields(u, zap.String("city", dest.Name))...)
		e.do(u, Action{Kind: ActTradeRoute, City: dest.ID})
	default:
		e.log.Debug("arrived but can do nothing", unitFields(u, zap.String("city", dest.Name))...)
		e.NewTask(u, TaskNone, nil)
	}
}

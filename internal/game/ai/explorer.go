package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ExploreResult is the outcome of an exploration step.
type ExploreResult int

// Exploration outcomes.
const (
	// ExploreMoved means the unit moved toward unknown territory.
	ExploreMoved ExploreResult = iota
	// ExploreNothing means nothing is left to explore within reach.
	ExploreNothing
	// ExploreDied means the unit did not survive.
	ExploreDied
)

const (
	exploreRadius = 2
	hutDesire     = 100
)

// exploreDesire rates how much standing on tile would reveal for u.
func (e *Engine) exploreDesire(u *world.Unit, owner *world.Player, tile world.Tile) Want {
	unknown := 0
	for _, t := range e.w.Map.Square(tile, exploreRadius) {
		if !owner.Seen(t) {
			unknown++
		}
	}
	desire := Want(unknown)
	if info := e.w.Map.At(tile); info != nil && info.Hut && !owner.IsBarbarian() &&
		e.w.IsNative(u.Type, tile, u.Owner) && e.w.CityAt(tile) == nil {
		desire += hutDesire
	}
	return desire
}

// Explore moves u toward the reachable tile that reveals the most unknown
// tiles, discounted by the turns it takes to get there.
func (e *Engine) Explore(u *world.Unit) ExploreResult {
	owner := e.player(u.Owner)
	result := ExploreNothing
	for rounds := u.MovesLeft + 1; rounds > 0 && u.MovesLeft > 0; rounds-- {
		m := e.unitMap(u, 0)
		var (
			best     Want
			bestTile *world.Tile
		)
		for _, pos := range m.Positions() {
			if pos.Tile == u.Tile || e.w.NonAlliedUnitAt(u.Owner, pos.Tile) {
				continue
			}
			if c := e.w.CityAt(pos.Tile); c != nil && !e.w.Allied(u.Owner, c.Owner) {
				continue
			}
			desire := Amortize(e.exploreDesire(u, owner, pos.Tile), pos.Turn)
			if desire > best {
				best = desire
				t := pos.Tile
				bestTile = &t
			}
		}
		if bestTile == nil {
			break
		}
		path, ok := m.Path(*bestTile)
		if !ok {
			break
		}
		e.log.Debug("exploring", unitFields(u, zap.Stringer("goal", *bestTile), zap.Float64("want", float64(best)))...)
		start := u.Tile
		if !e.followPath(u, path, *bestTile) {
			return ExploreDied
		}
		if u.Tile == start {
			break
		}
		result = ExploreMoved
	}
	if e.alive(u) && u.Activity == world.ActivityGoto {
		e.setActivity(u, world.ActivityIdle)
	}
	return result
}

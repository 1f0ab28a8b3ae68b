package pathfind

import (
	"container/heap"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Reverse answers how many turns units anywhere on the map need to reach
// one target tile. Distance fields are computed lazily per unit class.
type Reverse struct {
	f          *Finder
	target     world.Tile
	owner      world.PlayerID
	maxTurns   int
	omniscient bool
	fields     map[string]map[world.Tile]int
}

// ReverseMap prepares a reverse search toward target from the point of
// view of owner. Turns beyond maxTurns are reported as unreachable; a
// maxTurns of 0 means unbounded.
func (f *Finder) ReverseMap(target world.Tile, owner world.PlayerID, maxTurns int, omniscient bool) *Reverse {
	return &Reverse{
		f:          f,
		target:     target,
		owner:      owner,
		maxTurns:   maxTurns,
		omniscient: omniscient,
		fields:     make(map[string]map[world.Tile]int),
	}
}

// Target returns the tile the reverse map leads to.
func (r *Reverse) Target() world.Tile {
	return r.target
}

// Turns returns the turns u needs to reach the target with full moves
// each turn: 0 when the cost fits into one turn's moves.
func (r *Reverse) Turns(u *world.Unit) (int, bool) {
	return r.TypeTurns(u.Type, u.Tile)
}

// TypeTurns returns the turns a unit of type t standing on from needs to
// reach the target.
func (r *Reverse) TypeTurns(t *ruleset.UnitType, from world.Tile) (int, bool) {
	frags, ok := r.field(t.Class)[from]
	if !ok {
		return 0, false
	}
	turns := 0
	if frags > 0 {
		turns = (frags - 1) / t.MoveFrags()
	}
	if r.maxTurns > 0 && turns > r.maxTurns {
		return 0, false
	}
	return turns, true
}

func (r *Reverse) field(class *ruleset.UnitClass) map[world.Tile]int {
	if fld, ok := r.fields[class.ID]; ok {
		return fld
	}
	fld := map[world.Tile]int{r.target: 0}
	pq := &queue{{tile: r.target}}
	done := make(map[world.Tile]bool)
	var seq int
	for pq.Len() > 0 {
		e := heap.Pop(pq).(*entry)
		if done[e.tile] {
			continue
		}
		done[e.tile] = true
		step := r.f.stepCost(r.owner, e.tile, r.omniscient)
		for _, nt := range r.f.w.Map.Neighbors(e.tile) {
			if done[nt] || !r.standable(class, nt) {
				continue
			}
			cost := fld[e.tile] + step
			if old, seen := fld[nt]; seen && old <= cost {
				continue
			}
			fld[nt] = cost
			seq++
			heap.Push(pq, &entry{tile: nt, cost: cost, seq: seq})
		}
	}
	r.fields[class.ID] = fld
	return fld
}

func (r *Reverse) standable(class *ruleset.UnitClass, tile world.Tile) bool {
	if !r.omniscient && !r.f.known(r.owner, tile) {
		return true
	}
	return class.IsNativeTo(r.f.w.Map.Terrain(tile))
}

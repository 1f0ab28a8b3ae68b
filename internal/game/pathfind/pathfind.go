// Package pathfind is the reference pathfinder: a Dijkstra search over
// the tile grid measuring time in turns and move fragments.
//
// Movement rules: entering a tile costs its terrain move cost in whole
// moves; a unit with any moves left may always step, ending its turn with
// zero moves when the step costs more than it has. Tiles holding
// non-allied units or cities are reachable as destinations but never
// passed through. Zones of control are not modelled. Among paths of
// equal cost the one with the fewest diagonal steps wins, so results do
// not depend on neighbour order.
package pathfind

import (
	"container/heap"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Params tunes one search.
type Params struct {
	// MaxTurns bounds the search; positions reached later are dropped. 0 means unbounded.
	MaxTurns int
	// Omniscient ignores the owner's map knowledge. Otherwise unknown tiles
	// are assumed enterable at the cost of one move.
	Omniscient bool
}

// Position is one reached tile.
type Position struct {
	Tile world.Tile
	// Turn is the number of turn ends before arrival; 0 means this turn.
	Turn int
	// MovesLeft is the move fragments left on arrival.
	MovesLeft int
	// Cost orders positions: Turn*full moves + fragments spent in the arrival turn.
	Cost int
}

// Path is a sequence of positions from the start (inclusive) to a destination.
type Path []Position

// Dest returns the final position of p.
//
// Precondition: p must be non-empty.
func (p Path) Dest() Position {
	return p[len(p)-1]
}

// Turns returns the arrival turn of p, or 0 for an empty path.
func (p Path) Turns() int {
	if len(p) == 0 {
		return 0
	}
	return p.Dest().Turn
}

type node struct {
	pos    Position
	parent world.Tile
	diag   int // diagonal steps from the start
	root   bool
	open   bool // expansion allowed
}

// Map is the result of a forward search from one start tile.
type Map struct {
	start world.Tile
	nodes map[world.Tile]*node
	order []world.Tile
}

// Start returns the tile the search began on.
func (m *Map) Start() world.Tile {
	return m.start
}

// Position returns the best position for tile.
func (m *Map) Position(tile world.Tile) (Position, bool) {
	n, ok := m.nodes[tile]
	if !ok {
		return Position{}, false
	}
	return n.pos, true
}

// Turns returns the arrival turn for tile.
func (m *Map) Turns(tile world.Tile) (int, bool) {
	n, ok := m.nodes[tile]
	if !ok {
		return 0, false
	}
	return n.pos.Turn, true
}

// Reachable reports whether tile was reached.
func (m *Map) Reachable(tile world.Tile) bool {
	_, ok := m.nodes[tile]
	return ok
}

// Path returns the path from the start to tile.
func (m *Map) Path(tile world.Tile) (Path, bool) {
	n, ok := m.nodes[tile]
	if !ok {
		return nil, false
	}
	var rev Path
	for {
		rev = append(rev, n.pos)
		if n.root {
			break
		}
		n = m.nodes[n.parent]
	}
	out := make(Path, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out, true
}

// Positions returns every reached position in increasing cost order,
// the start first.
func (m *Map) Positions() []Position {
	out := make([]Position, 0, len(m.order))
	for _, t := range m.order {
		out = append(out, m.nodes[t].pos)
	}
	return out
}

// Finder runs searches against a world.
//
// Finder reads the world without mutating it and is not safe for
// concurrent use with world mutation.
type Finder struct {
	w *world.World
}

// NewFinder creates a Finder over w.
//
// Precondition: w must be non-nil.
func NewFinder(w *world.World) *Finder {
	if w == nil {
		panic("pathfind.NewFinder: world must not be nil")
	}
	return &Finder{w: w}
}

// UnitMap searches from u's tile using u's type, owner and moves left.
func (f *Finder) UnitMap(u *world.Unit, p Params) *Map {
	return f.search(u.Type, u.Owner, u.Tile, u.MovesLeft, p)
}

// TypeMap searches for a fresh unit of type t owned by owner standing on start.
func (f *Finder) TypeMap(t *ruleset.UnitType, owner world.PlayerID, start world.Tile, p Params) *Map {
	return f.search(t, owner, start, t.MoveFrags(), p)
}

func (f *Finder) search(t *ruleset.UnitType, owner world.PlayerID, start world.Tile, movesLeft int, p Params) *Map {
	m := &Map{start: start, nodes: make(map[world.Tile]*node)}
	full := t.MoveFrags()
	if movesLeft < 0 {
		movesLeft = 0
	}
	root := &node{
		pos:  Position{Tile: start, MovesLeft: movesLeft, Cost: full - movesLeft},
		root: true,
		open: true,
	}
	m.nodes[start] = root

	var seq int
	pq := &queue{}
	heap.Push(pq, &entry{tile: start, cost: root.pos.Cost, seq: seq})
	done := make(map[world.Tile]bool)

	for pq.Len() > 0 {
		e := heap.Pop(pq).(*entry)
		if done[e.tile] {
			continue
		}
		done[e.tile] = true
		m.order = append(m.order, e.tile)
		cur := m.nodes[e.tile]
		if !cur.open {
			continue
		}
		turn, left := cur.pos.Turn, cur.pos.MovesLeft
		if left <= 0 {
			turn++
			left = full
		}
		if p.MaxTurns > 0 && turn > p.MaxTurns {
			continue
		}
		for _, nt := range f.w.Map.Neighbors(e.tile) {
			if done[nt] {
				continue
			}
			enter, open := f.enterable(t, owner, nt, p.Omniscient)
			if !enter {
				continue
			}
			newLeft := left - f.stepCost(owner, nt, p.Omniscient)
			if newLeft < 0 {
				newLeft = 0
			}
			pos := Position{Tile: nt, Turn: turn, MovesLeft: newLeft, Cost: turn*full + full - newLeft}
			diag := cur.diag
			if nt.X != e.tile.X && nt.Y != e.tile.Y {
				diag++
			}
			if old, seen := m.nodes[nt]; seen &&
				(old.pos.Cost < pos.Cost || old.pos.Cost == pos.Cost && old.diag <= diag) {
				continue
			}
			m.nodes[nt] = &node{pos: pos, parent: e.tile, diag: diag, open: open}
			seq++
			heap.Push(pq, &entry{tile: nt, cost: pos.Cost, diag: diag, seq: seq})
		}
	}
	return m
}

// enterable reports whether a unit may end a step on tile and whether the
// search may continue past it.
func (f *Finder) enterable(t *ruleset.UnitType, owner world.PlayerID, tile world.Tile, omniscient bool) (enter, open bool) {
	if !omniscient && !f.known(owner, tile) {
		return true, true
	}
	hostile := f.w.NonAlliedUnitAt(owner, tile)
	if c := f.w.CityAt(tile); c != nil && !f.w.Allied(owner, c.Owner) {
		hostile = true
	}
	if hostile {
		return f.w.IsNative(t, tile, owner) || t.Class.AttackNonNative, false
	}
	if !f.w.IsNative(t, tile, owner) {
		return false, false
	}
	return true, true
}

func (f *Finder) stepCost(owner world.PlayerID, tile world.Tile, omniscient bool) int {
	if !omniscient && !f.known(owner, tile) {
		return ruleset.SingleMove
	}
	return f.w.Map.Terrain(tile).MoveCost * ruleset.SingleMove
}

func (f *Finder) known(owner world.PlayerID, tile world.Tile) bool {
	p, ok := f.w.Player(owner)
	return !ok || p.Knows(tile)
}

type entry struct {
	tile world.Tile
	cost int
	diag int
	seq  int
}

type queue []*entry

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].diag != q[j].diag {
		return q[i].diag < q[j].diag
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x interface{}) { *q = append(*q, x.(*entry)) }
func (q *queue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

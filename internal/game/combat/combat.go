// Package combat is the reference combat model: attack and defense power,
// the binomial win chance and round-by-round resolution. The tactical
// engine only sees it through its odds oracle interface.
package combat

import "github.com/cory-johannsen/tactics/internal/game/world"

// Result is the outcome of one resolved attack.
type Result struct {
	// AttackerWon reports whether the defender was destroyed.
	AttackerWon bool
	// AttackerHP and DefenderHP are the hit points left after the fight.
	AttackerHP int
	DefenderHP int
	// Rounds is the number of exchanged blows.
	Rounds int
}

// Winner returns the surviving unit of att and def.
func (r Result) Winner(att, def *world.Unit) *world.Unit {
	if r.AttackerWon {
		return att
	}
	return def
}

// Loser returns the destroyed unit of att and def.
func (r Result) Loser(att, def *world.Unit) *world.Unit {
	if r.AttackerWon {
		return def
	}
	return att
}

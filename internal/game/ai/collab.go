package ai

import (
	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// PathFinder answers reachability questions.
type PathFinder interface {
	// UnitMap searches from u's position with its current moves.
	UnitMap(u *world.Unit, p pathfind.Params) *pathfind.Map
	// TypeMap searches for a fresh unit of type t owned by owner on start.
	TypeMap(t *ruleset.UnitType, owner world.PlayerID, start world.Tile, p pathfind.Params) *pathfind.Map
	// ReverseMap measures how far units are from target.
	ReverseMap(target world.Tile, owner world.PlayerID, maxTurns int, omniscient bool) *pathfind.Reverse
}

// CombatOracle answers combat legality and odds questions. The engine
// never computes odds itself.
type CombatOracle interface {
	CanAttackTile(attacker *world.Unit, tile world.Tile) bool
	// Defender returns the unit defending tile against attacker, or nil.
	Defender(attacker *world.Unit, tile world.Tile) *world.Unit
	WinChance(attacker, defender *world.Unit) float64
	TotalAttackPower(attacker, defender *world.Unit) int
	TotalDefensePower(attacker, defender *world.Unit) int
	VirtualDefensePower(attType, defType *ruleset.UnitType, defOwner world.PlayerID, tile world.Tile, fortified bool, vet int) int
}

// ActionKind names what an Action does.
type ActionKind int

// Action kinds.
const (
	// ActMove steps to an adjacent tile, conquering an empty enemy city or entering a hut.
	ActMove ActionKind = iota
	// ActAttack attacks the adjacent Tile.
	ActAttack
	// ActActivity sets Activity.
	ActActivity
	// ActLoad boards the transport Target on the same tile.
	ActLoad
	// ActUnload leaves the current transport.
	ActUnload
	// ActParadrop drops onto Tile.
	ActParadrop
	// ActAirlift flies to City.
	ActAirlift
	// ActHelpWonder adds the unit's shields to City's wonder.
	ActHelpWonder
	// ActTradeRoute establishes a route with City.
	ActTradeRoute
	// ActDisband removes the unit.
	ActDisband
)

var actionNames = [...]string{"move", "attack", "activity", "load", "unload", "paradrop", "airlift", "help_wonder", "trade_route", "disband"}

// String returns the action kind name.
func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[k]
}

// Action is one request to the executor.
type Action struct {
	Kind     ActionKind
	Unit     world.UnitID
	Tile     world.Tile
	Target   world.UnitID
	City     world.CityID
	Activity world.Activity
}

// Executor performs actions. An action may kill the acting unit; callers
// re-resolve the unit by id afterwards.
type Executor interface {
	Do(a Action) error
}

// Policy lets scripts adjust decisions without changing the engine.
type Policy interface {
	// AdjustWant rescales the want of attacking tile with u.
	AdjustWant(u *world.Unit, tile world.Tile, want Want) Want
	// RampageThresholds adjusts the rampage thresholds for u.
	RampageThresholds(u *world.Unit, adj, move int) (int, int)
}

// NoPolicy leaves every decision unchanged.
type NoPolicy struct{}

// AdjustWant returns want.
func (NoPolicy) AdjustWant(_ *world.Unit, _ world.Tile, want Want) Want { return want }

// RampageThresholds returns adj and move.
func (NoPolicy) RampageThresholds(_ *world.Unit, adj, move int) (int, int) { return adj, move }

// DiplomatAdvisor manages diplomat units. ManageDiplomat reports whether
// it handled u.
type DiplomatAdvisor interface {
	ManageDiplomat(u *world.Unit) bool
}

// Fuzzer flips decisions of handicapped players.
type Fuzzer interface {
	Fuzzy(normal bool, perMille int) bool
}

// Random draws the engine's coin flips.
type Random interface {
	Intn(n int) int
}

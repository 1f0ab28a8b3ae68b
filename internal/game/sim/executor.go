// Package sim is the reference rules executor: it carries out the actions
// the tactical engine requests against a world, resolving combat with
// dice, and runs the start-of-turn upkeep.
package sim

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ErrIllegalAction is returned for actions the rules do not allow.
var ErrIllegalAction = errors.New("illegal action")

// hutGold is the gold found in a hut.
const hutGold = 25

// Executor mutates a world on behalf of the engine.
//
// Executor is not safe for concurrent use.
type Executor struct {
	w            *world.World
	rules        *ruleset.Ruleset
	oracle       *combat.Oracle
	roller       *dice.Roller
	occupyChance int
	log          *zap.Logger

	// airlifted holds the cities that already sent a unit by air this turn.
	airlifted map[world.CityID]bool
}

// NewExecutor creates an Executor over w. occupyChance is the percent
// chance a victorious attacker moves into the emptied tile.
//
// Precondition: w, oracle, roller and logger must be non-nil.
func NewExecutor(w *world.World, oracle *combat.Oracle, roller *dice.Roller, occupyChance int, logger *zap.Logger) *Executor {
	if w == nil {
		panic("sim.NewExecutor: world must not be nil")
	}
	if oracle == nil {
		panic("sim.NewExecutor: oracle must not be nil")
	}
	if roller == nil {
		panic("sim.NewExecutor: roller must not be nil")
	}
	if logger == nil {
		panic("sim.NewExecutor: logger must not be nil")
	}
	return &Executor{
		w:            w,
		rules:        w.Rules,
		oracle:       oracle,
		roller:       roller,
		occupyChance: occupyChance,
		log:          logger,
		airlifted:    make(map[world.CityID]bool),
	}
}

func illegal(format string, args ...any) error {
	return fmt.Errorf("sim.Do: %w: %s", ErrIllegalAction, fmt.Sprintf(format, args...))
}

// Do performs a.
//
// Postcondition: Returns world.ErrUnknownUnit when the actor is gone and
// ErrIllegalAction, wrapped, when the rules refuse the action; the world
// is unchanged in both cases. A legal attack may destroy the actor.
func (x *Executor) Do(a ai.Action) error {
	u, ok := x.w.Unit(a.Unit)
	if !ok {
		return fmt.Errorf("sim.Do: %w: %d", world.ErrUnknownUnit, a.Unit)
	}
	switch a.Kind {
	case ai.ActMove:
		return x.move(u, a.Tile)
	case ai.ActAttack:
		return x.attack(u, a.Tile)
	case ai.ActActivity:
		u.Activity = a.Activity
		return nil
	case ai.ActLoad:
		return x.load(u, a.Target)
	case ai.ActUnload:
		return x.unload(u)
	case ai.ActParadrop:
		return x.paradrop(u, a.Tile)
	case ai.ActAirlift:
		return x.airlift(u, a.City)
	case ai.ActHelpWonder:
		return x.helpWonder(u, a.City)
	case ai.ActTradeRoute:
		return x.tradeRoute(u, a.City)
	case ai.ActDisband:
		return x.w.RemoveUnit(u.ID)
	default:
		return illegal("unknown action kind %d", a.Kind)
	}
}

// transportFor returns a transport on tile that can take u aboard, or nil.
func (x *Executor) transportFor(u *world.Unit, tile world.Tile) *world.Unit {
	for _, t := range x.w.UnitsAt(tile) {
		if t.ID == u.ID || !x.w.Allied(u.Owner, t.Owner) || t.Transported() {
			continue
		}
		if x.rules.CanCarry(t.Type, u.Type) && x.w.FreeCapacity(t) > 0 {
			return t
		}
	}
	return nil
}

func (x *Executor) move(u *world.Unit, to world.Tile) error {
	if u.MovesLeft <= 0 {
		return illegal("%s has no moves left", u)
	}
	if !x.w.Map.InBounds(to) || !u.Tile.Adjacent(to) {
		return illegal("%s cannot step to %s", u, to)
	}
	if x.w.NonAlliedUnitAt(u.Owner, to) {
		return illegal("%s is blocked at %s", u, to)
	}
	c := x.w.CityAt(to)
	conquer := false
	if c != nil && !x.w.Allied(u.Owner, c.Owner) {
		if !x.w.AtWar(u.Owner, c.Owner) || !x.rules.CanTakeOver(u.Type) {
			return illegal("%s cannot enter %s", u, c.Name)
		}
		conquer = true
	}

	var boat *world.Unit
	if !x.w.IsNative(u.Type, to, u.Owner) {
		boat = x.transportFor(u, to)
		if boat == nil {
			return illegal("%s cannot stand on %s", u, to)
		}
	}

	cost := ruleset.SingleMove
	if terrain := x.w.Map.Terrain(to); terrain != nil && boat == nil {
		cost = terrain.MoveCost * ruleset.SingleMove
	}
	if boat != nil {
		u.TransportedBy = boat.ID
	} else if u.Transported() {
		u.TransportedBy = 0
	}
	x.w.MoveUnit(u, to)
	u.MovesLeft = max(u.MovesLeft-cost, 0)
	u.Moved = true
	if u.Activity != world.ActivityGoto && u.Activity != world.ActivityExplore {
		u.Activity = world.ActivityIdle
	}

	if conquer {
		x.log.Debug("city conquered", zap.String("city", c.Name), zap.Int("unit_id", int(u.ID)))
		x.w.TransferCity(c, u.Owner)
	}
	if info := x.w.Map.At(to); info != nil && info.Hut && boat == nil && u.Type.Class.Huts {
		x.enterHut(u, info)
	}
	return nil
}

func (x *Executor) enterHut(u *world.Unit, info *world.TileInfo) {
	info.Hut = false
	if p, ok := x.w.Player(u.Owner); ok {
		p.Gold += hutGold
	}
	x.log.Debug("hut entered", zap.Int("unit_id", int(u.ID)), zap.Int("gold", hutGold))
}

func (x *Executor) attack(u *world.Unit, tile world.Tile) error {
	if u.MovesLeft <= 0 {
		return illegal("%s has no moves left", u)
	}
	if !u.Tile.Adjacent(tile) || !x.oracle.CanAttackTile(u, tile) {
		return illegal("%s cannot attack %s", u, tile)
	}
	def := x.oracle.Defender(u, tile)
	if def == nil {
		return illegal("nothing to attack at %s", tile)
	}

	res := combat.Resolve(x.oracle, u, def, rollerSource{x.roller})
	u.HP = res.AttackerHP
	def.HP = res.DefenderHP
	u.Moved = true
	u.Activity = world.ActivityIdle
	if u.Type.HasFlag(ruleset.FlagOneAttack) {
		u.MovesLeft = 0
	} else {
		u.MovesLeft = max(u.MovesLeft-ruleset.SingleMove, 0)
	}
	x.log.Debug("combat",
		zap.Int("attacker", int(u.ID)),
		zap.Int("defender", int(def.ID)),
		zap.Bool("attacker_won", res.AttackerWon),
		zap.Int("rounds", res.Rounds),
	)

	if !res.AttackerWon {
		return x.w.RemoveUnit(u.ID)
	}
	x.promote(u)
	if x.w.CityAt(tile) == nil {
		// Outside cities the whole stack falls with its defender.
		for _, victim := range x.w.UnitsAt(tile) {
			_ = x.w.RemoveUnit(victim.ID)
		}
	} else if err := x.w.RemoveUnit(def.ID); err != nil {
		return err
	}
	if len(x.w.UnitsAt(tile)) == 0 && u.MovesLeft > 0 && x.roller.Chance(x.occupyChance, "occupy") {
		_ = x.move(u, tile)
	}
	return nil
}

func (x *Executor) promote(u *world.Unit) {
	if u.Veteran+1 < len(x.rules.VeteranLevels()) && x.roller.Chance(50, "veteran") {
		u.Veteran++
	}
}

func (x *Executor) load(u *world.Unit, transportID world.UnitID) error {
	t, ok := x.w.Unit(transportID)
	if !ok {
		return fmt.Errorf("sim.Do: %w: transport %d", world.ErrUnknownUnit, transportID)
	}
	if t.Tile != u.Tile || t.ID == u.ID || !x.w.Allied(u.Owner, t.Owner) {
		return illegal("%s cannot board %s", u, t)
	}
	if u.TransportedBy == t.ID {
		return nil
	}
	if !x.rules.CanCarry(t.Type, u.Type) || x.w.FreeCapacity(t) == 0 {
		return illegal("%s has no room for %s", t, u)
	}
	u.TransportedBy = t.ID
	u.Activity = world.ActivitySentry
	return nil
}

func (x *Executor) unload(u *world.Unit) error {
	if !u.Transported() {
		return nil
	}
	if !x.w.IsNative(u.Type, u.Tile, u.Owner) {
		return illegal("%s cannot leave its transport at %s", u, u.Tile)
	}
	u.TransportedBy = 0
	return nil
}

func (x *Executor) paradrop(u *world.Unit, to world.Tile) error {
	src := x.w.CityAt(u.Tile)
	if !u.Type.HasFlag(ruleset.FlagParatroopers) || src == nil || !x.w.Allied(u.Owner, src.Owner) {
		return illegal("%s cannot jump from %s", u, u.Tile)
	}
	if u.MovesLeft < u.Type.MoveFrags() || u.Tile.Distance(to) > u.Type.ParatroopersRange || !x.w.Map.InBounds(to) {
		return illegal("%s cannot reach %s", u, to)
	}
	if x.w.NonAlliedUnitAt(u.Owner, to) {
		return illegal("%s cannot land on units at %s", u, to)
	}
	if !x.w.IsNative(u.Type, to, u.Owner) {
		x.log.Debug("paratrooper lost at sea", zap.Int("unit_id", int(u.ID)))
		return x.w.RemoveUnit(u.ID)
	}
	x.w.MoveUnit(u, to)
	u.MovesLeft = max(u.MovesLeft-ruleset.SingleMove, 0)
	u.Moved = true
	u.Activity = world.ActivityIdle
	if c := x.w.CityAt(to); c != nil && x.w.AtWar(u.Owner, c.Owner) && x.rules.CanTakeOver(u.Type) {
		x.w.TransferCity(c, u.Owner)
	}
	return nil
}

func (x *Executor) hasAirport(c *world.City) bool {
	for _, id := range c.Buildings() {
		if imp, ok := x.rules.Improvement(id); ok && imp.Airport {
			return true
		}
	}
	return false
}

func (x *Executor) airlift(u *world.Unit, destID world.CityID) error {
	dest, ok := x.w.City(destID)
	if !ok {
		return illegal("unknown city %d", destID)
	}
	src := x.w.CityAt(u.Tile)
	if src == nil || src.ID == dest.ID || src.Owner != u.Owner || dest.Owner != u.Owner {
		return illegal("%s cannot fly to %s", u, dest.Name)
	}
	if !u.Type.Class.Airliftable || u.MovesLeft <= 0 || x.airlifted[src.ID] {
		return illegal("%s cannot be airlifted now", u)
	}
	if !x.hasAirport(src) || !x.hasAirport(dest) {
		return illegal("no airport between %s and %s", src.Name, dest.Name)
	}
	x.airlifted[src.ID] = true
	u.TransportedBy = 0
	x.w.MoveUnit(u, dest.Tile)
	u.MovesLeft = 0
	u.Moved = true
	return nil
}

func (x *Executor) helpWonder(u *world.Unit, cityID world.CityID) error {
	c, ok := x.w.City(cityID)
	if !ok || !u.Type.HasFlag(ruleset.FlagHelpWonder) || c.Owner != u.Owner || c.Wonder == "" {
		return illegal("%s cannot help a wonder in city %d", u, cityID)
	}
	if u.Tile.Distance(c.Tile) > 1 {
		return illegal("%s is too far from %s", u, c.Name)
	}
	c.ShieldStock += u.Type.BuildCost
	x.log.Debug("wonder helped", zap.String("city", c.Name), zap.Int("shield_stock", c.ShieldStock))
	return x.w.RemoveUnit(u.ID)
}

func (x *Executor) tradeRoute(u *world.Unit, cityID world.CityID) error {
	c, ok := x.w.City(cityID)
	home, hasHome := x.w.City(u.HomeCity)
	if !ok || !hasHome || !u.Type.HasFlag(ruleset.FlagTradeRoute) || home.ID == c.ID {
		return illegal("%s cannot open a route to city %d", u, cityID)
	}
	if u.Tile.Distance(c.Tile) > 1 || x.w.AtWar(u.Owner, c.Owner) || home.TradePartner[c.ID] {
		return illegal("%s cannot trade with %s", u, c.Name)
	}
	home.TradePartner[c.ID] = true
	c.TradePartner[home.ID] = true
	x.log.Debug("trade route opened", zap.String("from", home.Name), zap.String("to", c.Name))
	return x.w.RemoveUnit(u.ID)
}

// StartTurn runs the upkeep of player's units at the start of its turn:
// moves are restored, fortifying units finish fortifying and hit points
// are regained or lost.
func (x *Executor) StartTurn(player world.PlayerID) {
	for _, c := range x.w.CitiesOf(player) {
		delete(x.airlifted, c.ID)
	}
	for _, u := range x.w.UnitsOf(player) {
		u.HP = min(u.HP+x.hpGain(u), u.Type.HP)
		if u.HP <= 0 {
			_ = x.w.RemoveUnit(u.ID)
			continue
		}
		u.MovesLeft = u.Type.MoveFrags()
		u.Moved = false
		if u.Activity == world.ActivityFortifying {
			u.Activity = world.ActivityFortified
		}
	}
}

func (x *Executor) hpGain(u *world.Unit) int {
	full := u.Type.HP
	if c := x.w.CityAt(u.Tile); c != nil && x.w.Allied(u.Owner, c.Owner) {
		regen := 0
		for _, id := range c.Buildings() {
			if imp, ok := x.rules.Improvement(id); ok {
				regen += imp.HPRegen
			}
		}
		return full/3 + full*regen/100
	}
	if u.Type.Class.HPLossPct > 0 {
		return -full * u.Type.Class.HPLossPct / 100
	}
	if u.Moved {
		return 0
	}
	return full / 10
}

// rollerSource adapts a Roller to combat.Source.
type rollerSource struct {
	r *dice.Roller
}

func (s rollerSource) Intn(n int) int {
	return s.r.Intn(n, "combat")
}

var _ ai.Executor = (*Executor)(nil)

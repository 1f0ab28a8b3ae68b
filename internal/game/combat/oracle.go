package combat

import (
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Oracle answers combat legality and odds questions against a world.
//
// Oracle reads the world without mutating it and is not safe for
// concurrent use with world mutation.
type Oracle struct {
	w *world.World
}

// NewOracle creates an Oracle over w.
//
// Precondition: w must be non-nil.
func NewOracle(w *world.World) *Oracle {
	if w == nil {
		panic("combat.NewOracle: world must not be nil")
	}
	return &Oracle{w: w}
}

// CanAttackTile reports whether attacker may attack the units on tile:
// the tile must hold units, all of them at war with the attacker, and the
// attacker must be able to reach the tile's terrain.
func (o *Oracle) CanAttackTile(attacker *world.Unit, tile world.Tile) bool {
	if attacker == nil || !attacker.Type.CanAttack() {
		return false
	}
	units := o.w.UnitsAt(tile)
	if len(units) == 0 {
		return false
	}
	for _, u := range units {
		if !o.w.AtWar(attacker.Owner, u.Owner) {
			return false
		}
	}
	if !attacker.Type.Class.AttackNonNative && !o.w.IsNative(attacker.Type, tile, attacker.Owner) {
		return false
	}
	return true
}

// Defender returns the unit on tile that would defend against attacker,
// or nil when the tile is empty. The best defender minimises the
// attacker's win chance; ties go to the cheaper unit, then to the higher
// defense rating.
func (o *Oracle) Defender(attacker *world.Unit, tile world.Tile) *world.Unit {
	var (
		best       *world.Unit
		bestValue  = -1
		bestCost   int
		bestRating int
	)
	for _, d := range o.w.UnitsAt(tile) {
		if attacker != nil && o.w.Allied(attacker.Owner, d.Owner) {
			continue
		}
		value := 100000
		if attacker != nil {
			value = int(100000 * (1 - o.WinChance(attacker, d)))
		}
		cost := d.Type.BuildCost
		rating := o.defenseRating(attacker, d)
		switch {
		case value > bestValue:
		case value == bestValue && cost < bestCost:
		case value == bestValue && cost == bestCost && rating > bestRating:
		default:
			continue
		}
		best, bestValue, bestCost, bestRating = d, value, cost, rating
	}
	return best
}

func (o *Oracle) defenseRating(attacker, defender *world.Unit) int {
	afp := 1
	dfp := defender.Type.Firepower
	if attacker != nil {
		afp, dfp = o.Firepower(attacker, defender)
	}
	return o.TotalDefensePower(attacker, defender) * ((defender.HP + afp - 1) / afp) * dfp
}

// WinChance returns the probability that attacker destroys defender in
// one attack.
//
// Postcondition: Returns a value in [0, 1].
func (o *Oracle) WinChance(attacker, defender *world.Unit) float64 {
	as := o.TotalAttackPower(attacker, defender)
	ds := o.TotalDefensePower(attacker, defender)
	afp, dfp := o.Firepower(attacker, defender)
	return WinProbability(as, attacker.HP, afp, ds, defender.HP, dfp)
}

// TotalAttackPower returns attacker's power against defender, including
// the veteran factor and the penalty for less than one full move.
func (o *Oracle) TotalAttackPower(attacker, defender *world.Unit) int {
	return o.w.Rules.AttackPower(attacker.Type, attacker.Veteran, attacker.MovesLeft)
}

// TotalDefensePower returns defender's power against attacker, including
// terrain, type, city and fortification bonuses. Land units aboard a
// transport on water do not defend. A nil attacker yields the power
// against a generic attacker.
func (o *Oracle) TotalDefensePower(attacker, defender *world.Unit) int {
	if defender.Transported() && !o.w.IsNative(defender.Type, defender.Tile, defender.Owner) {
		return 0
	}
	var attType *ruleset.UnitType
	if attacker != nil {
		attType = attacker.Type
	}
	fortified := defender.Activity == world.ActivityFortified
	return o.defensePower(attType, defender.Type, defender.Tile, fortified, defender.Veteran)
}

// VirtualDefensePower returns the defense power a unit of defType at
// veteran level vet would have on tile against attType.
func (o *Oracle) VirtualDefensePower(attType, defType *ruleset.UnitType, defOwner world.PlayerID, tile world.Tile, fortified bool, vet int) int {
	if !o.w.IsNative(defType, tile, defOwner) {
		return 0
	}
	return o.defensePower(attType, defType, tile, fortified, vet)
}

func (o *Oracle) defensePower(attType, defType *ruleset.UnitType, tile world.Tile, fortified bool, vet int) int {
	power := o.w.Rules.DefensePower(defType, vet)
	if terrain := o.w.Map.Terrain(tile); terrain != nil {
		power = power * (100 + terrain.DefenseBonus) / 100
	}
	return o.defenseMultiplication(attType, defType, tile, power, fortified)
}

func (o *Oracle) defenseMultiplication(attType, defType *ruleset.UnitType, tile world.Tile, power int, fortified bool) int {
	city := o.w.CityAt(tile)
	if attType != nil {
		power = power * (100 + defType.DefenseBonusAgainst(attType.Class)) / 100
		if city != nil {
			bonus := 0
			for _, id := range city.Buildings() {
				if imp, ok := o.w.Rules.Improvement(id); ok {
					bonus += imp.DefendBonusAgainst(attType.Class)
				}
			}
			power = power * (100 + bonus) / 100
		}
	}
	if (city != nil || fortified) && o.w.Rules.IsLandClass(defType.Class) {
		power = power * 3 / 2
	}
	if power < 0 {
		return 0
	}
	return power
}

// Firepower returns the firepower of attacker and defender after
// situational modifiers. Bad city defenders in a city take double damage
// and strike with firepower 1; an attacker fighting a tile it cannot enter
// reduces both sides to firepower 1.
func (o *Oracle) Firepower(attacker, defender *world.Unit) (afp, dfp int) {
	afp = attacker.Type.Firepower
	dfp = defender.Type.Firepower
	if defender.Type.HasFlag(ruleset.FlagBadCityDefender) && o.w.CityAt(defender.Tile) != nil {
		return afp * 2, 1
	}
	if !attacker.Type.Class.IsNativeTo(o.w.Map.Terrain(defender.Tile)) {
		return 1, 1
	}
	return afp, dfp
}

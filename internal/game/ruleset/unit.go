// Package ruleset holds the immutable game rule tables: unit classes, unit
// types, terrains, improvements and veteran levels.
package ruleset

import "sort"

// SingleMove is the number of move fragments in one move point.
const SingleMove = 3

// PowerFactor scales raw attack and defense strengths into combat power.
const PowerFactor = 10

// Unit type flags.
const (
	FlagNonMil          = "NonMil"
	FlagCities          = "Cities"
	FlagWorkers         = "Workers"
	FlagDiplomat        = "Diplomat"
	FlagHelpWonder      = "HelpWonder"
	FlagTradeRoute      = "TradeRoute"
	FlagParatroopers    = "Paratroopers"
	FlagBadCityDefender = "BadCityDefender"
	FlagGameLoss        = "GameLoss"
	FlagOneAttack       = "OneAttack"
	FlagBarbarianLeader = "BarbarianLeader"
	FlagMarines         = "Marines"
	FlagCoastStrict     = "CoastStrict"
)

// Unit type roles.
const (
	RoleDefendGood = "DefendGood"
	RoleDefendOK   = "DefendOk"
	RoleHunter     = "Hunter"
	RoleExplorer   = "Explorer"
	RoleFerryboat  = "Ferryboat"
	RoleAttackFast = "AttackFast"
)

// UnitClass groups unit types that share movement and occupation rules.
//
// Precondition: ID must be non-empty and Native must name known terrains after loading.
type UnitClass struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Native []string `yaml:"native"`
	// CanOccupyCity allows members to conquer empty enemy cities.
	CanOccupyCity bool `yaml:"can_occupy_city"`
	// AttackNonNative allows members to attack tiles they cannot enter.
	AttackNonNative bool `yaml:"attack_non_native"`
	// Huts allows members to enter huts.
	Huts bool `yaml:"huts"`
	// HPLossPct is the share of max hit points lost each turn outside a city.
	HPLossPct int `yaml:"hp_loss_pct"`
	// Airliftable allows members to be airlifted between airport cities.
	Airliftable bool `yaml:"airliftable"`

	native map[string]bool
}

// IsNativeTo reports whether the class may end its move on terrain.
func (c *UnitClass) IsNativeTo(terrain *Terrain) bool {
	if terrain == nil {
		return false
	}
	return c.native[terrain.ID]
}

// UnitType is the immutable description of one kind of unit.
//
// Precondition: ID and Class must be non-empty; HP, Firepower and MoveRate must be positive.
type UnitType struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	ClassID   string `yaml:"class"`
	Attack    int    `yaml:"attack"`
	Defense   int    `yaml:"defense"`
	HP        int    `yaml:"hp"`
	Firepower int    `yaml:"firepower"`
	// MoveRate is expressed in whole move points.
	MoveRate  int `yaml:"move_rate"`
	BuildCost int `yaml:"build_cost"`
	// Fuel is the number of turns the unit may stay away from a refuelling point; 0 means unlimited.
	Fuel int `yaml:"fuel"`
	// Capacity is the number of units this type can transport.
	Capacity int `yaml:"capacity"`
	// Cargo lists the class ids this type can transport.
	Cargo []string `yaml:"cargo"`
	// ParatroopersRange is the drop radius for paratroopers.
	ParatroopersRange int `yaml:"paratroopers_range"`
	// DefenseBonuses maps attacker class ids to an extra defense percentage.
	DefenseBonuses map[string]int `yaml:"defense_bonuses"`
	Flags          []string       `yaml:"flags"`
	Roles          []string       `yaml:"roles"`

	Class *UnitClass `yaml:"-"`
	flags map[string]bool
	roles map[string]bool
	cargo map[string]bool
}

// HasFlag reports whether the unit type carries flag.
func (t *UnitType) HasFlag(flag string) bool {
	return t.flags[flag]
}

// HasRole reports whether the unit type fills role.
func (t *UnitType) HasRole(role string) bool {
	return t.roles[role]
}

// MoveFrags returns the full move allowance in move fragments.
func (t *UnitType) MoveFrags() int {
	return t.MoveRate * SingleMove
}

// IsMilitary reports whether the unit type is a combat unit.
func (t *UnitType) IsMilitary() bool {
	return !t.HasFlag(FlagNonMil)
}

// CanAttack reports whether the unit type has any attack strength.
func (t *UnitType) CanAttack() bool {
	return t.Attack > 0
}

// CarriesClass reports whether the unit type can transport members of classID.
func (t *UnitType) CarriesClass(classID string) bool {
	return t.Capacity > 0 && t.cargo[classID]
}

// AttackStrength returns attack * hp * firepower, the raw offensive size of the type.
func (t *UnitType) AttackStrength() int {
	return t.Attack * t.HP * t.Firepower
}

// DefenseStrength returns defense * hp * firepower, the raw defensive size of the type.
func (t *UnitType) DefenseStrength() int {
	return t.Defense * t.HP * t.Firepower
}

// DefenseBonusAgainst returns the type's extra defense percentage against attackers of class.
func (t *UnitType) DefenseBonusAgainst(class *UnitClass) int {
	if class == nil {
		return 0
	}
	return t.DefenseBonuses[class.ID]
}

func (t *UnitType) index() {
	t.flags = toSet(t.Flags)
	t.roles = toSet(t.Roles)
	t.cargo = toSet(t.Cargo)
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

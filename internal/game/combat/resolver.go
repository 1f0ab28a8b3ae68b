package combat

import "github.com/cory-johannsen/tactics/internal/game/world"

// Source is the subset of dice.Source used by the resolver.
// Using a local interface avoids a circular import.
type Source interface {
	Intn(n int) int
}

// Resolve fights attacker against defender round by round until one side
// runs out of hit points. Each round the defender loses the attacker's
// firepower in hit points when rand(att+def) >= def; otherwise the attacker
// loses the defender's firepower. Units are not mutated.
//
// Precondition: attacker, defender and src must be non-nil; both units must have hp > 0.
// Postcondition: Exactly one of AttackerHP and DefenderHP is 0.
func Resolve(o *Oracle, attacker, defender *world.Unit, src Source) Result {
	att := o.TotalAttackPower(attacker, defender)
	def := o.TotalDefensePower(attacker, defender)
	afp, dfp := o.Firepower(attacker, defender)
	res := Result{AttackerHP: attacker.HP, DefenderHP: defender.HP}

	if att == 0 && def == 0 {
		att, def = 1, 1
	}
	for res.AttackerHP > 0 && res.DefenderHP > 0 {
		res.Rounds++
		if src.Intn(att+def) >= def {
			res.DefenderHP -= afp
		} else {
			res.AttackerHP -= dfp
		}
	}
	if res.AttackerHP < 0 {
		res.AttackerHP = 0
	}
	if res.DefenderHP < 0 {
		res.DefenderHP = 0
	}
	res.AttackerWon = res.DefenderHP == 0
	return res
}

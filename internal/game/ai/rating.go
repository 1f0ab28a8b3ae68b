package ai

import (
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// powerDivider keeps ratings in a comfortable integer range.
const powerDivider = ruleset.PowerFactor * 3

// typeAttRating is the attack rating of a unit of type t.
func typeAttRating(rules *ruleset.Ruleset, t *ruleset.UnitType, vet, movesLeft, hp int) int {
	return rules.AttackPower(t, vet, movesLeft) * hp * t.Firepower / powerDivider
}

// attRating is u's attack rating assuming a full move.
func attRating(rules *ruleset.Ruleset, u *world.Unit) int {
	return typeAttRating(rules, u.Type, u.Veteran, ruleset.SingleMove, u.HP)
}

// attRatingNow is u's attack rating with its current moves.
func attRatingNow(rules *ruleset.Ruleset, u *world.Unit) int {
	return typeAttRating(rules, u.Type, u.Veteran, u.MovesLeft, u.HP)
}

func attRatingSquared(rules *ruleset.Ruleset, u *world.Unit) int {
	v := attRating(rules, u)
	return v * v
}

// defRatingBasic is u's defense rating ignoring terrain and situation.
func defRatingBasic(rules *ruleset.Ruleset, u *world.Unit) int {
	return rules.DefensePower(u.Type, u.Veteran) * u.HP * u.Type.Firepower / powerDivider
}

func defRatingBasicSquared(rules *ruleset.Ruleset, u *world.Unit) int {
	v := defRatingBasic(rules, u)
	return v * v
}

// unitDefRating is defender's rating against attacker. Virtual attackers
// face a defender at full health.
func (e *Engine) unitDefRating(attacker, defender *world.Unit) int {
	hp := defender.Type.HP
	if !attacker.IsVirtual() {
		hp = defender.HP
	}
	return e.combat.TotalDefensePower(attacker, defender) * hp * defender.Type.Firepower / powerDivider
}

func (e *Engine) unitDefRatingSquared(attacker, defender *world.Unit) int {
	v := e.unitDefRating(attacker, defender)
	return v * v
}

// unittypeDefRatingSquared is the squared rating a fresh defender of
// defType would have on tile against attType.
func (e *Engine) unittypeDefRatingSquared(attType, defType *ruleset.UnitType, defOwner world.PlayerID, tile world.Tile, fortified bool, vet int) int {
	v := e.combat.VirtualDefensePower(attType, defType, defOwner, tile, fortified, vet) * defType.HP * defType.Firepower / powerDivider
	return v * v
}

// isAttacker reports whether t is worth counting as an offensive unit.
func isAttacker(t *ruleset.UnitType) bool {
	return t.Attack > 0 && t.IsMilitary()
}

// actsHostile reports whether units of t threaten what they approach.
func actsHostile(t *ruleset.UnitType) bool {
	return isAttacker(t) || t.HasFlag(ruleset.FlagDiplomat)
}

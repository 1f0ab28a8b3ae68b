package ai

import (
	"math"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Want is the engine's utility scalar, measured in shield-equivalents.
type Want float64

// Clamp floors w at zero.
func (w Want) Clamp() Want {
	if w < 0 {
		return 0
	}
	return w
}

// DefaultMort is the interest constant of the default discount.
const DefaultMort = 24

// Amortize discounts benefit realized delay turns from now with DefaultMort.
//
// Postcondition: Returns 0 for benefit <= 0; Amortize(b, 0) == b.
func Amortize(benefit Want, delay int) Want {
	return AmortizeWith(benefit, delay, DefaultMort)
}

// AmortizeWith discounts benefit by ((mort-1)/mort)^delay.
//
// Postcondition: Returns 0 for benefit <= 0; the result strictly decreases with delay.
func AmortizeWith(benefit Want, delay, mort int) Want {
	if benefit <= 0 {
		return 0
	}
	if delay <= 0 {
		return benefit
	}
	if mort < 2 {
		mort = 2
	}
	discount := 1 - 1/float64(mort)
	return benefit * Want(math.Pow(discount, float64(delay)))
}

// MilitaryAmortize discounts value by delay plus the turns the city (or
// the player's average city) needs to replace a unit costing buildCost.
//
// Postcondition: Returns 0 for value <= 0.
func MilitaryAmortize(w *world.World, player world.PlayerID, city *world.City, value Want, delay, buildCost, mort int) Want {
	cityOutput := 1
	if city != nil {
		cityOutput = city.Surplus.Shield
	}
	output := max(cityOutput, w.AverageShieldSurplus(player))
	buildTime := buildCost / max(output, 1)
	if value <= 0 {
		return 0
	}
	return AmortizeWith(value, delay+buildTime, mort)
}

// KillDesire weighs the attractiveness of destroying a victim against the
// risk of losing the attacker, scaled by the number of victims killed at
// once. attack and vuln usually come squared.
//
// Postcondition: Non-decreasing in benefit and attack, non-increasing in loss and vuln.
func KillDesire(benefit Want, attack, loss, vuln, count, shieldWeighting int) Want {
	denom := max(attack+vuln*count, 1)
	return (benefit*Want(attack) - Want(loss)*Want(vuln)) * Want(count) * Want(shieldWeighting) / Want(denom)
}

// AvgBenefit is the expected gain of an action that wins benefit with
// probability chance and loses loss otherwise.
func AvgBenefit(benefit, loss int, chance float64, shieldWeighting int) Want {
	return Want((float64(benefit+loss)*chance - float64(loss)) * float64(shieldWeighting))
}

// BuildCostBalanced inflates the cost of attackers with poor defense so
// balanced units are preferred.
func BuildCostBalanced(t *ruleset.UnitType) int {
	return 2 * t.BuildCost * t.Attack / max(t.Attack+t.Defense, 1)
}

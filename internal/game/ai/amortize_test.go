package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/testutil"
)

func TestAmortize_NoDelayKeepsBenefit(t *testing.T) {
	assert.Equal(t, ai.Want(120), ai.Amortize(120, 0))
	assert.Zero(t, ai.Amortize(0, 3))
	assert.Zero(t, ai.Amortize(-5, 3))
}

func TestAmortize_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		benefit := ai.Want(rapid.Float64Range(0.001, 1e6).Draw(rt, "benefit"))
		delay := rapid.IntRange(0, 60).Draw(rt, "delay")
		mort := rapid.IntRange(2, 100).Draw(rt, "mort")

		now := ai.AmortizeWith(benefit, delay, mort)
		later := ai.AmortizeWith(benefit, delay+1, mort)
		assert.Positive(rt, float64(now))
		assert.LessOrEqual(rt, float64(now), float64(benefit))
		assert.Less(rt, float64(later), float64(now), "strictly decreasing in delay")
	})
}

func TestAmortize_NonPositiveBenefitIsZero(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		benefit := ai.Want(rapid.Float64Range(-1e6, 0).Draw(rt, "benefit"))
		delay := rapid.IntRange(0, 60).Draw(rt, "delay")
		assert.Zero(rt, float64(ai.Amortize(benefit, delay)))
	})
}

func TestKillDesire_Monotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		benefit := rapid.IntRange(0, 1000).Draw(rt, "benefit")
		attack := rapid.IntRange(1, 10000).Draw(rt, "attack")
		loss := rapid.IntRange(0, 1000).Draw(rt, "loss")
		vuln := rapid.IntRange(0, 10000).Draw(rt, "vuln")
		count := rapid.IntRange(1, 8).Draw(rt, "count")
		sw := rapid.IntRange(1, 40).Draw(rt, "sw")
		step := rapid.IntRange(1, 100).Draw(rt, "step")

		base := ai.KillDesire(ai.Want(benefit), attack, loss, vuln, count, sw)
		more := ai.KillDesire(ai.Want(benefit+step), attack, loss, vuln, count, sw)
		costly := ai.KillDesire(ai.Want(benefit), attack, loss+step, vuln, count, sw)
		assert.GreaterOrEqual(rt, float64(more), float64(base), "non-decreasing in benefit")
		assert.LessOrEqual(rt, float64(costly), float64(base), "non-increasing in loss")
	})
}

func TestKillDesire_ZeroAttackNeverPays(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		benefit := rapid.IntRange(0, 1000).Draw(rt, "benefit")
		loss := rapid.IntRange(0, 1000).Draw(rt, "loss")
		vuln := rapid.IntRange(0, 10000).Draw(rt, "vuln")
		assert.LessOrEqual(rt, float64(ai.KillDesire(ai.Want(benefit), 0, loss, vuln, 1, 17)), 0.0)
	})
}

func TestAvgBenefit(t *testing.T) {
	assert.InDelta(t, float64(30*17), float64(ai.AvgBenefit(30, 40, 1, 17)), 1e-9)
	assert.InDelta(t, float64(-40*17), float64(ai.AvgBenefit(30, 40, 0, 17)), 1e-9)
}

func TestBuildCostBalanced(t *testing.T) {
	rules := testutil.ClassicRuleset(t)
	catapult := testutil.UnitType(t, rules, "catapult")
	pikemen := testutil.UnitType(t, rules, "pikemen")
	assert.Greater(t, ai.BuildCostBalanced(catapult), catapult.BuildCost, "attack-heavy units cost more")
	assert.Less(t, ai.BuildCostBalanced(pikemen), pikemen.BuildCost)
}

func TestWant_Clamp(t *testing.T) {
	assert.Equal(t, ai.Want(0), ai.Want(-3).Clamp())
	assert.Equal(t, ai.Want(3), ai.Want(3).Clamp())
}

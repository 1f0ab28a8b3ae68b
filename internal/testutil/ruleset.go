package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tactics/content"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ClassicRuleset loads the shipped classic ruleset.
//
// Postcondition: Returns a fully indexed Ruleset; fails the test otherwise.
func ClassicRuleset(t testing.TB) *ruleset.Ruleset {
	t.Helper()
	rules, err := ruleset.LoadFS(content.FS, content.ClassicRulesetDir)
	require.NoError(t, err)
	return rules
}

// UnitType returns the classic unit type id, failing the test if it is unknown.
func UnitType(t testing.TB, rules *ruleset.Ruleset, id string) *ruleset.UnitType {
	t.Helper()
	ut, ok := rules.UnitType(id)
	require.True(t, ok, "unknown unit type %q", id)
	return ut
}

// Scenario parses an inline scenario document against the classic ruleset.
//
// Postcondition: Returns the loaded scenario; fails the test on any error.
func Scenario(t testing.TB, doc string) *world.Scenario {
	t.Helper()
	sc, err := world.LoadScenarioFromBytes([]byte(doc), ClassicRuleset(t))
	require.NoError(t, err)
	return sc
}

// Unit resolves a scenario label to its live unit.
func Unit(t testing.TB, sc *world.Scenario, label string) *world.Unit {
	t.Helper()
	id, ok := sc.Labels[label]
	require.True(t, ok, "unknown unit label %q", label)
	u, ok := sc.World.Unit(id)
	require.True(t, ok, "unit %q is gone", label)
	return u
}

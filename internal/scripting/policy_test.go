package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/scripting"
	"github.com/cory-johannsen/tactics/internal/testutil"
)

const policyScenario = `
scenario:
  name: policy
  map:
    width: 6
    height: 6
  players:
    - {id: 1, name: rome, ai: true}
    - {id: 2, name: carthage, ai: true}
  units:
    - {label: legion, owner: 1, type: legion, at: [1, 1]}
    - {label: horse, owner: 2, type: horsemen, at: [4, 4]}
`

func TestPolicy_NoScripts_LeavesDecisionsAlone(t *testing.T) {
	sc := testutil.Scenario(t, policyScenario)
	mgr, _ := newTestManager(t)
	p := scripting.NewPolicy(mgr, sc.World)
	u := testutil.Unit(t, sc, "legion")

	assert.Equal(t, ai.Want(40), p.AdjustWant(u, u.Tile, 40))
	adj, move := p.RampageThresholds(u, 1, 99999)
	assert.Equal(t, 1, adj)
	assert.Equal(t, 99999, move)
}

func TestPolicy_PlayerScopeRescalesWant(t *testing.T) {
	sc := testutil.Scenario(t, policyScenario)
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("rome", writeTempLua(t, "p.lua", `
		function adjust_want(unit, x, y, want)
			if unit.type == "legion" then return want * 2 end
			return want
		end
		function rampage_thresholds(unit, adj, move)
			return {adj = adj + 5}
		end
	`), 0))
	p := scripting.NewPolicy(mgr, sc.World)

	legion := testutil.Unit(t, sc, "legion")
	horse := testutil.Unit(t, sc, "horse")
	assert.Equal(t, ai.Want(80), p.AdjustWant(legion, horse.Tile, 40))
	assert.Equal(t, ai.Want(40), p.AdjustWant(horse, legion.Tile, 40), "carthage has no scripts")

	adj, move := p.RampageThresholds(legion, 1, 99999)
	assert.Equal(t, 6, adj)
	assert.Equal(t, 99999, move, "fields left out keep their value")
}

func TestPolicy_BadResultsKeepWant(t *testing.T) {
	sc := testutil.Scenario(t, policyScenario)
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "p.lua", `
		function adjust_want(unit, x, y, want) return "lots" end
		function rampage_thresholds(unit, adj, move) error("boom") end
	`), 0))
	p := scripting.NewPolicy(mgr, sc.World)
	u := testutil.Unit(t, sc, "legion")

	assert.Equal(t, ai.Want(40), p.AdjustWant(u, u.Tile, 40))
	adj, move := p.RampageThresholds(u, 3, 4)
	assert.Equal(t, 3, adj)
	assert.Equal(t, 4, move)
}

func TestNewPolicy_NilPanics(t *testing.T) {
	sc := testutil.Scenario(t, policyScenario)
	mgr, _ := newTestManager(t)
	assert.Panics(t, func() { scripting.NewPolicy(nil, sc.World) })
	assert.Panics(t, func() { scripting.NewPolicy(mgr, nil) })
}

package ai_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/testutil"
)

// frontier is a wide plain with one city per side.
const frontier = `
scenario:
  name: frontier
  map:
    width: 24
    height: 5
  players:
    - id: 1
      name: rome
      diplomacy:
        2: war
    - id: 2
      name: gauls
  cities:
    - name: Roma
      owner: 1
      at: [2, 2]
      size: 3
      building_want:
        city_walls: 10
    - name: Alesia
      owner: 2
      at: [21, 2]
      size: 2
  units:
    - label: guard
      owner: 1
      type: phalanx
      at: [2, 2]
      activity: fortified
    - label: raider
      owner: 2
      type: legion
      at: [20, 2]
`

func TestAssessDanger_NoReachableHostiles(t *testing.T) {
	h := newHarness(t, frontier)
	require.NoError(t, h.eng.BeginTurn(1))
	roma := h.city(t, "Roma")

	danger := h.eng.AssessDanger(roma)
	data := h.eng.CityData(roma)
	assert.Zero(t, danger)
	assert.Zero(t, data.Danger)
	assert.Zero(t, data.Urgency)
	assert.Zero(t, data.GraveDanger)
	assert.Equal(t, 5, data.WallValue, "wall value stays at its floor without danger")
	assert.False(t, data.DiplomatThreat)
}

func TestAssessDanger_AdjacentRaider(t *testing.T) {
	h := newHarness(t, frontier)
	raider := h.unit(t, "raider")
	raider.Tile = world.Tile{X: 3, Y: 2}
	require.NoError(t, h.eng.BeginTurn(1))
	roma := h.city(t, "Roma")

	danger := h.eng.AssessDanger(roma)
	data := h.eng.CityData(roma)
	assert.Positive(t, danger)
	assert.Equal(t, 1, data.GraveDanger)
	assert.Equal(t, 11, data.Urgency, "one raider within reach plus ten per grave danger")
	assert.Equal(t, 90, data.WallValue)
	assert.True(t, data.DiplomatThreat)
	assert.Positive(t, data.DangerReduced["city_walls"], "walls would reduce the danger from land units")
	assert.Contains(t, data.BuildingWant, "city_walls")
}

func TestAssessDanger_FartherRaiderIsLessDangerous(t *testing.T) {
	near := newHarness(t, frontier)
	near.unit(t, "raider").Tile = world.Tile{X: 3, Y: 2}
	require.NoError(t, near.eng.BeginTurn(1))
	nearDanger := near.eng.AssessDanger(near.city(t, "Roma"))

	far := newHarness(t, frontier)
	far.unit(t, "raider").Tile = world.Tile{X: 5, Y: 2}
	require.NoError(t, far.eng.BeginTurn(1))
	farDanger := far.eng.AssessDanger(far.city(t, "Roma"))

	assert.Positive(t, farDanger)
	assert.Less(t, farDanger, nearDanger)
}

func TestAssessDanger_PeaceIsSafe(t *testing.T) {
	sc := testutil.Scenario(t, frontier)
	rome, _ := sc.World.Player(1)
	gauls, _ := sc.World.Player(2)
	rome.SetDiplState(2, world.Peace)
	gauls.SetDiplState(1, world.Peace)
	h := newHarnessFor(t, sc, config.DefaultTactics())
	h.unit(t, "raider").Tile = world.Tile{X: 3, Y: 2}
	require.NoError(t, h.eng.BeginTurn(1))

	assert.Zero(t, h.eng.AssessDanger(h.city(t, "Roma")))
}

func TestAssessDanger_DangerHandicapFloor(t *testing.T) {
	sc := testutil.Scenario(t, frontier)
	rome, _ := sc.World.Player(1)
	rome.Handicaps[world.HDanger] = true
	h := newHarnessFor(t, sc, config.DefaultTactics())
	require.NoError(t, h.eng.BeginTurn(1))
	roma := h.city(t, "Roma")

	assert.Equal(t, 1, h.eng.AssessDanger(roma))
	assert.Equal(t, 1, h.eng.CityData(roma).GraveDanger)
}

func TestAssessDanger_MapHandicapIgnoresFoggedUnits(t *testing.T) {
	sc := testutil.Scenario(t, frontier)
	rome, _ := sc.World.Player(1)
	rome.Handicaps[world.HMap] = true
	h := newHarnessFor(t, sc, config.DefaultTactics())
	fogged := world.Tile{X: 5, Y: 2}
	h.unit(t, "raider").Tile = fogged
	require.False(t, rome.Knows(fogged))
	require.NoError(t, h.eng.BeginTurn(1))
	roma := h.city(t, "Roma")

	assert.Zero(t, h.eng.AssessDanger(roma))
	data := h.eng.CityData(roma)
	assert.Zero(t, data.Urgency)
	assert.Zero(t, data.GraveDanger)

	h.w.Reveal(1, fogged)
	require.NoError(t, h.eng.BeginTurn(1))
	assert.Positive(t, h.eng.AssessDanger(roma), "a discovered raider counts again")
}

func TestAssessDanger_NonNegative(t *testing.T) {
	types := []string{"warriors", "legion", "catapult", "knights", "diplomat", "settlers", "paratroopers"}
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, frontier)
		for i := range rapid.IntRange(0, 6).Draw(rt, "n") {
			tile := world.Tile{
				X: rapid.IntRange(0, 23).Draw(rt, fmt.Sprintf("x%d", i)),
				Y: rapid.IntRange(0, 4).Draw(rt, fmt.Sprintf("y%d", i)),
			}
			if tile == (world.Tile{X: 2, Y: 2}) {
				continue
			}
			ut := testutil.UnitType(t, h.w.Rules, rapid.SampledFrom(types).Draw(rt, fmt.Sprintf("type%d", i)))
			_, err := h.w.NewUnit(2, ut, tile)
			require.NoError(rt, err)
		}
		require.NoError(rt, h.eng.BeginTurn(1))
		roma := h.city(t, "Roma")
		h.eng.AssessDanger(roma)

		data := h.eng.CityData(roma)
		assert.GreaterOrEqual(rt, data.Danger, 0)
		assert.GreaterOrEqual(rt, data.Urgency, 0)
		assert.GreaterOrEqual(rt, data.GraveDanger, 0)
		assert.GreaterOrEqual(rt, data.WallValue, 0)
		for id, v := range data.DangerReduced {
			assert.GreaterOrEqual(rt, v, 0, id)
		}
		// Every gravely close occupier is also counted as urgent.
		assert.GreaterOrEqual(rt, data.Urgency, 11*data.GraveDanger)
	})
}

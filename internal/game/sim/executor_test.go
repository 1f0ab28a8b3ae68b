package sim_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/sim"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/testutil"
)

const field = `
scenario:
  name: field
  map:
    rows:
      - "gggggooo"
      - "ggmggooo"
      - "gggggooo"
      - "gggggooo"
    huts:
      - [0, 3]
  players:
    - id: 1
      name: rome
      diplomacy:
        2: war
        3: peace
    - id: 2
      name: carthage
    - id: 3
      name: egypt
  cities:
    - name: Roma
      owner: 1
      at: [0, 0]
      size: 3
      trade: 5
      buildings: [airport, barracks]
      wonder: pyramids
    - name: Antium
      owner: 1
      at: [4, 3]
      size: 1
      buildings: [airport]
    - name: Carthago
      owner: 2
      at: [4, 0]
      size: 2
      trade: 4
    - name: Thebes
      owner: 3
      at: [2, 3]
      size: 1
  units:
    - label: legion
      owner: 1
      type: legion
      at: [1, 1]
    - label: knights
      owner: 1
      type: knights
      at: [3, 1]
    - label: workers
      owner: 2
      type: workers
      at: [3, 2]
    - label: caravan
      owner: 1
      type: caravan
      at: [1, 0]
      home: Roma
    - label: paratroopers
      owner: 1
      type: paratroopers
      at: [0, 0]
    - label: transport
      owner: 1
      type: transport
      at: [5, 2]
    - label: warriors
      owner: 1
      type: warriors
      at: [0, 2]
`

func newExecutor(t *testing.T, sc *world.Scenario, occupy int) *sim.Executor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), logger)
	return sim.NewExecutor(sc.World, combat.NewOracle(sc.World), roller, occupy, logger)
}

func TestDo_UnknownUnit(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	err := x.Do(ai.Action{Kind: ai.ActMove, Unit: 9999, Tile: world.Tile{X: 1, Y: 1}})
	assert.True(t, errors.Is(err, world.ErrUnknownUnit))
}

func TestMove_SpendsTerrainCost(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	knights := testutil.Unit(t, sc, "knights")

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActMove, Unit: knights.ID, Tile: world.Tile{X: 2, Y: 1}}))
	assert.Equal(t, world.Tile{X: 2, Y: 1}, knights.Tile)
	assert.Equal(t, 0, knights.MovesLeft, "mountains cost more than the knights have left")
	assert.True(t, knights.Moved)
}

func TestMove_RejectsIllegalSteps(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	legion := testutil.Unit(t, sc, "legion")

	cases := map[string]world.Tile{
		"not adjacent": {X: 3, Y: 3},
		"off the map":  {X: -1, Y: 0},
	}
	for name, to := range cases {
		t.Run(name, func(t *testing.T) {
			err := x.Do(ai.Action{Kind: ai.ActMove, Unit: legion.ID, Tile: to})
			assert.True(t, errors.Is(err, sim.ErrIllegalAction))
			assert.Equal(t, world.Tile{X: 1, Y: 1}, legion.Tile)
		})
	}

	legion.MovesLeft = 0
	err := x.Do(ai.Action{Kind: ai.ActMove, Unit: legion.ID, Tile: world.Tile{X: 1, Y: 2}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction))
}

func TestMove_BlockedByEnemyAndPeacefulCity(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	knights := testutil.Unit(t, sc, "knights")

	err := x.Do(ai.Action{Kind: ai.ActMove, Unit: knights.ID, Tile: world.Tile{X: 3, Y: 2}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "enemy unit must be attacked, not entered")

	warriors := testutil.Unit(t, sc, "warriors")
	warriors.Tile = world.Tile{X: 1, Y: 3}
	err = x.Do(ai.Action{Kind: ai.ActMove, Unit: warriors.ID, Tile: world.Tile{X: 2, Y: 3}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "cities at peace cannot be entered")
}

func TestMove_ConquersEmptyEnemyCity(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	knights := testutil.Unit(t, sc, "knights")
	carthago := sc.World.CityAt(world.Tile{X: 4, Y: 0})
	require.NotNil(t, carthago)

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActMove, Unit: knights.ID, Tile: carthago.Tile}))
	assert.Equal(t, knights.Owner, carthago.Owner)
}

func TestMove_EntersHut(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	warriors := testutil.Unit(t, sc, "warriors")
	rome, _ := sc.World.Player(warriors.Owner)
	gold := rome.Gold

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActMove, Unit: warriors.ID, Tile: world.Tile{X: 0, Y: 3}}))
	assert.False(t, sc.World.Map.At(world.Tile{X: 0, Y: 3}).Hut)
	assert.Greater(t, rome.Gold, gold)
}

func TestMove_BoardsAndLeavesTransport(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	knights := testutil.Unit(t, sc, "knights")
	transport := testutil.Unit(t, sc, "transport")
	knights.Tile = world.Tile{X: 4, Y: 2}

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActMove, Unit: knights.ID, Tile: transport.Tile}))
	assert.Equal(t, transport.ID, knights.TransportedBy)

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActMove, Unit: transport.ID, Tile: world.Tile{X: 5, Y: 3}}))
	assert.Equal(t, world.Tile{X: 5, Y: 3}, knights.Tile, "cargo travels with its transport")

	knights.MovesLeft = knights.Type.MoveFrags()
	require.NoError(t, x.Do(ai.Action{Kind: ai.ActMove, Unit: knights.ID, Tile: world.Tile{X: 4, Y: 3}}))
	assert.False(t, knights.Transported())
}

func TestMove_ToWaterWithoutTransportIsIllegal(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	knights := testutil.Unit(t, sc, "knights")
	knights.Tile = world.Tile{X: 4, Y: 1}

	err := x.Do(ai.Action{Kind: ai.ActMove, Unit: knights.ID, Tile: world.Tile{X: 5, Y: 1}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction))
}

func TestAttack_DefenselessUnitDies(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	knights := testutil.Unit(t, sc, "knights")
	workers := testutil.Unit(t, sc, "workers")

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActAttack, Unit: knights.ID, Tile: workers.Tile}))
	_, alive := sc.World.Unit(workers.ID)
	assert.False(t, alive)
	assert.Equal(t, world.Tile{X: 3, Y: 1}, knights.Tile, "no occupation at zero chance")
	assert.Equal(t, knights.Type.MoveFrags()-3, knights.MovesLeft)
}

func TestAttack_OccupiesAtFullChance(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 100)
	knights := testutil.Unit(t, sc, "knights")
	workers := testutil.Unit(t, sc, "workers")
	target := workers.Tile

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActAttack, Unit: knights.ID, Tile: target}))
	assert.Equal(t, target, knights.Tile)
}

func TestAttack_EmptyOrAdjacentOnly(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	legion := testutil.Unit(t, sc, "legion")

	err := x.Do(ai.Action{Kind: ai.ActAttack, Unit: legion.ID, Tile: world.Tile{X: 2, Y: 2}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "nothing to attack")
	err = x.Do(ai.Action{Kind: ai.ActAttack, Unit: legion.ID, Tile: world.Tile{X: 3, Y: 2}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "not adjacent")
}

func TestAttack_ExactlyOneSideLoses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sc := testutil.Scenario(t, field)
		logger := zaptest.NewLogger(t)
		roller := dice.NewLoggedRoller(dice.NewSeededSource(rapid.Int64().Draw(rt, "seed")), logger)
		x := sim.NewExecutor(sc.World, combat.NewOracle(sc.World), roller, 0, logger)

		legion := testutil.Unit(t, sc, "legion")
		defType := testutil.UnitType(t, sc.World.Rules, rapid.SampledFrom([]string{"phalanx", "legion", "warriors", "pikemen"}).Draw(rt, "def"))
		def, err := sc.World.NewUnit(2, defType, world.Tile{X: 1, Y: 2})
		require.NoError(rt, err)

		require.NoError(rt, x.Do(ai.Action{Kind: ai.ActAttack, Unit: legion.ID, Tile: def.Tile}))
		_, attAlive := sc.World.Unit(legion.ID)
		_, defAlive := sc.World.Unit(def.ID)
		assert.NotEqual(rt, attAlive, defAlive)
		if attAlive {
			assert.Positive(rt, legion.HP)
		} else {
			assert.Positive(rt, def.HP)
		}
	})
}

func TestLoadUnload(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	legion := testutil.Unit(t, sc, "legion")
	transport := testutil.Unit(t, sc, "transport")

	err := x.Do(ai.Action{Kind: ai.ActLoad, Unit: legion.ID, Target: transport.ID})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "must share the tile")

	// Beach the transport next to land in a coastal city.
	antium := sc.World.CityAt(world.Tile{X: 4, Y: 3})
	transport.Tile = antium.Tile
	legion.Tile = antium.Tile
	require.NoError(t, x.Do(ai.Action{Kind: ai.ActLoad, Unit: legion.ID, Target: transport.ID}))
	assert.Equal(t, transport.ID, legion.TransportedBy)
	assert.Equal(t, world.ActivitySentry, legion.Activity)

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActUnload, Unit: legion.ID}))
	assert.False(t, legion.Transported())
}

func TestParadrop(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	para := testutil.Unit(t, sc, "paratroopers")

	err := x.Do(ai.Action{Kind: ai.ActParadrop, Unit: para.ID, Tile: world.Tile{X: 3, Y: 2}})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "cannot land on enemy units")

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActParadrop, Unit: para.ID, Tile: world.Tile{X: 4, Y: 0}}))
	assert.Equal(t, world.Tile{X: 4, Y: 0}, para.Tile)
	assert.Equal(t, para.Owner, sc.World.CityAt(para.Tile).Owner, "the empty enemy city falls")
}

func TestParadrop_IntoSeaDrowns(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	para := testutil.Unit(t, sc, "paratroopers")

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActParadrop, Unit: para.ID, Tile: world.Tile{X: 6, Y: 0}}))
	_, alive := sc.World.Unit(para.ID)
	assert.False(t, alive)
}

func TestAirlift_OncePerCityPerTurn(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	para := testutil.Unit(t, sc, "paratroopers")
	legion := testutil.Unit(t, sc, "legion")
	legion.Tile = world.Tile{X: 0, Y: 0}
	antium := sc.World.CityAt(world.Tile{X: 4, Y: 3})

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActAirlift, Unit: para.ID, City: antium.ID}))
	assert.Equal(t, antium.Tile, para.Tile)
	assert.Zero(t, para.MovesLeft)

	err := x.Do(ai.Action{Kind: ai.ActAirlift, Unit: legion.ID, City: antium.ID})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction))

	x.StartTurn(legion.Owner)
	require.NoError(t, x.Do(ai.Action{Kind: ai.ActAirlift, Unit: legion.ID, City: antium.ID}))
}

func TestAirlift_NeedsAirports(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	para := testutil.Unit(t, sc, "paratroopers")
	carthago := sc.World.CityAt(world.Tile{X: 4, Y: 0})

	err := x.Do(ai.Action{Kind: ai.ActAirlift, Unit: para.ID, City: carthago.ID})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction))
}

func TestHelpWonder(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	caravan := testutil.Unit(t, sc, "caravan")
	roma := sc.World.CityAt(world.Tile{X: 0, Y: 0})

	require.NoError(t, x.Do(ai.Action{Kind: ai.ActHelpWonder, Unit: caravan.ID, City: roma.ID}))
	assert.Equal(t, caravan.Type.BuildCost, roma.ShieldStock)
	_, alive := sc.World.Unit(caravan.ID)
	assert.False(t, alive)
}

func TestTradeRoute(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	caravan := testutil.Unit(t, sc, "caravan")
	roma := sc.World.CityAt(world.Tile{X: 0, Y: 0})
	thebes := sc.World.CityAt(world.Tile{X: 2, Y: 3})
	carthago := sc.World.CityAt(world.Tile{X: 4, Y: 0})

	caravan.Tile = world.Tile{X: 3, Y: 0}
	err := x.Do(ai.Action{Kind: ai.ActTradeRoute, Unit: caravan.ID, City: carthago.ID})
	assert.True(t, errors.Is(err, sim.ErrIllegalAction), "no trade with enemies")

	caravan.Tile = world.Tile{X: 2, Y: 2}
	require.NoError(t, x.Do(ai.Action{Kind: ai.ActTradeRoute, Unit: caravan.ID, City: thebes.ID}))
	assert.True(t, roma.TradePartner[thebes.ID])
	assert.True(t, thebes.TradePartner[roma.ID])
}

func TestStartTurn_RestoresAndHeals(t *testing.T) {
	sc := testutil.Scenario(t, field)
	x := newExecutor(t, sc, 0)
	para := testutil.Unit(t, sc, "paratroopers")
	knights := testutil.Unit(t, sc, "knights")

	para.HP = 1
	para.MovesLeft = 0
	para.Activity = world.ActivityFortifying
	knights.HP = 5
	knights.Moved = true
	knights.MovesLeft = 0

	x.StartTurn(para.Owner)
	assert.Equal(t, para.Type.HP, para.HP, "barracks heal fully")
	assert.Equal(t, world.ActivityFortified, para.Activity)
	assert.Equal(t, knights.Type.MoveFrags(), knights.MovesLeft)
	assert.Equal(t, 5, knights.HP, "units that moved in the field do not heal")
	assert.False(t, knights.Moved)
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	sc := testutil.Scenario(t, field)
	logger := zaptest.NewLogger(t)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), logger)
	assert.Panics(t, func() { sim.NewExecutor(nil, combat.NewOracle(sc.World), roller, 0, logger) })
	assert.Panics(t, func() { sim.NewExecutor(sc.World, nil, roller, 0, logger) })
	assert.Panics(t, func() { sim.NewExecutor(sc.World, combat.NewOracle(sc.World), nil, 0, logger) })
	assert.Panics(t, func() { sim.NewExecutor(sc.World, combat.NewOracle(sc.World), roller, 0, nil) })
}

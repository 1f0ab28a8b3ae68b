package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/testutil"
)

// newCoastWorld builds a 6x3 world whose two rightmost columns are ocean,
// with players 1 and 2.
func newCoastWorld(t *testing.T) (*world.World, *ruleset.Ruleset) {
	t.Helper()
	rules := testutil.ClassicRuleset(t)
	grass, _ := rules.Terrain("grassland")
	ocean, _ := rules.Terrain("ocean")
	m := world.NewMap(6, 3, grass)
	for y := 0; y < 3; y++ {
		m.At(world.Tile{X: 4, Y: y}).Terrain = ocean
		m.At(world.Tile{X: 5, Y: y}).Terrain = ocean
	}
	w := world.New(rules, m)
	require.NoError(t, w.AddPlayer(world.NewPlayer(2, "carthage")))
	require.NoError(t, w.AddPlayer(world.NewPlayer(1, "rome")))
	return w, rules
}

func TestWorld_Players(t *testing.T) {
	w, _ := newCoastWorld(t)
	players := w.Players()
	require.Len(t, players, 2)
	assert.Equal(t, world.PlayerID(1), players[0].ID)
	assert.Equal(t, world.PlayerID(2), players[1].ID)

	err := w.AddPlayer(world.NewPlayer(1, "again"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate player ID")

	_, ok := w.Player(3)
	assert.False(t, ok)
}

func TestWorld_SharedIDSpace(t *testing.T) {
	w, rules := newCoastWorld(t)
	u, err := w.NewUnit(1, testutil.UnitType(t, rules, "warriors"), world.Tile{X: 0, Y: 0})
	require.NoError(t, err)
	c, err := w.NewCity(1, "Roma", world.Tile{X: 1, Y: 1}, 0)
	require.NoError(t, err)

	assert.Equal(t, world.UnitID(1), u.ID)
	assert.Equal(t, world.CityID(2), c.ID)
	assert.Equal(t, 1, c.Size)

	got, ok := w.Unit(u.ID)
	require.True(t, ok)
	assert.Same(t, u, got)
	gotCity, ok := w.City(c.ID)
	require.True(t, ok)
	assert.Same(t, c, gotCity)
	assert.Same(t, c, w.CityAt(world.Tile{X: 1, Y: 1}))
	assert.Nil(t, w.CityOf(u))
}

func TestWorld_NewUnitErrors(t *testing.T) {
	w, rules := newCoastWorld(t)
	warriors := testutil.UnitType(t, rules, "warriors")

	_, err := w.NewUnit(9, warriors, world.Tile{})
	assert.ErrorIs(t, err, world.ErrUnknownPlayer)

	_, err = w.NewUnit(1, warriors, world.Tile{X: 6, Y: 0})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "off the map")
}

func TestWorld_NewCityErrors(t *testing.T) {
	w, _ := newCoastWorld(t)
	_, err := w.NewCity(1, "Roma", world.Tile{X: 1, Y: 1}, 3)
	require.NoError(t, err)

	_, err = w.NewCity(2, "Carthago", world.Tile{X: 1, Y: 1}, 3)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already holds city")

	_, err = w.NewCity(7, "Nowhere", world.Tile{X: 0, Y: 0}, 1)
	assert.ErrorIs(t, err, world.ErrUnknownPlayer)
}

func TestWorld_QueriesAreOrdered(t *testing.T) {
	w, rules := newCoastWorld(t)
	warriors := testutil.UnitType(t, rules, "warriors")
	tile := world.Tile{X: 2, Y: 1}
	var ids []world.UnitID
	for i := 0; i < 4; i++ {
		owner := world.PlayerID(1 + i%2)
		u, err := w.NewUnit(owner, warriors, tile)
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	mine := w.UnitsOf(1)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[0], mine[0].ID)
	assert.Equal(t, ids[2], mine[1].ID)

	all := w.AllUnits()
	require.Len(t, all, 4)
	for i, u := range all {
		assert.Equal(t, ids[i], u.ID)
	}
	assert.Len(t, w.UnitsAt(tile), 4)
	assert.Empty(t, w.UnitsAt(world.Tile{}))
}

func TestWorld_CargoMovesWithTransport(t *testing.T) {
	w, rules := newCoastWorld(t)
	trireme, err := w.NewUnit(1, testutil.UnitType(t, rules, "trireme"), world.Tile{X: 4, Y: 0})
	require.NoError(t, err)
	passenger, err := w.NewUnit(1, testutil.UnitType(t, rules, "warriors"), world.Tile{X: 4, Y: 0})
	require.NoError(t, err)
	passenger.TransportedBy = trireme.ID

	assert.Equal(t, []*world.Unit{passenger}, w.Cargo(trireme.ID))
	assert.Equal(t, 1, w.FreeCapacity(trireme))

	w.MoveUnit(trireme, world.Tile{X: 5, Y: 2})
	assert.Equal(t, world.Tile{X: 5, Y: 2}, passenger.Tile)
}

func TestWorld_RemoveUnitDrownsCargo(t *testing.T) {
	w, rules := newCoastWorld(t)
	trireme, err := w.NewUnit(1, testutil.UnitType(t, rules, "trireme"), world.Tile{X: 4, Y: 1})
	require.NoError(t, err)
	passenger, err := w.NewUnit(1, testutil.UnitType(t, rules, "warriors"), world.Tile{X: 4, Y: 1})
	require.NoError(t, err)
	passenger.TransportedBy = trireme.ID

	var removed []world.UnitID
	w.OnUnitRemoved(func(u *world.Unit) { removed = append(removed, u.ID) })

	require.NoError(t, w.RemoveUnit(trireme.ID))
	_, ok := w.Unit(passenger.ID)
	assert.False(t, ok)
	assert.ElementsMatch(t, []world.UnitID{trireme.ID, passenger.ID}, removed)

	assert.ErrorIs(t, w.RemoveUnit(trireme.ID), world.ErrUnknownUnit)
}

func TestWorld_RemoveUnitUnloadsOnLand(t *testing.T) {
	w, rules := newCoastWorld(t)
	_, err := w.NewCity(1, "Ostia", world.Tile{X: 3, Y: 1}, 1)
	require.NoError(t, err)
	trireme, err := w.NewUnit(1, testutil.UnitType(t, rules, "trireme"), world.Tile{X: 3, Y: 1})
	require.NoError(t, err)
	passenger, err := w.NewUnit(1, testutil.UnitType(t, rules, "warriors"), world.Tile{X: 3, Y: 1})
	require.NoError(t, err)
	passenger.TransportedBy = trireme.ID

	require.NoError(t, w.RemoveUnit(trireme.ID))
	got, ok := w.Unit(passenger.ID)
	require.True(t, ok)
	assert.False(t, got.Transported())
}

func TestWorld_IsNative(t *testing.T) {
	w, rules := newCoastWorld(t)
	trireme := testutil.UnitType(t, rules, "trireme")
	warriors := testutil.UnitType(t, rules, "warriors")
	_, err := w.NewCity(1, "Ostia", world.Tile{X: 3, Y: 1}, 1)
	require.NoError(t, err)
	_, err = w.NewCity(1, "Inland", world.Tile{X: 0, Y: 1}, 1)
	require.NoError(t, err)

	assert.True(t, w.IsNative(warriors, world.Tile{X: 0, Y: 0}, 1))
	assert.False(t, w.IsNative(warriors, world.Tile{X: 4, Y: 0}, 1))
	assert.True(t, w.IsNative(trireme, world.Tile{X: 4, Y: 0}, 1))
	assert.True(t, w.IsNative(trireme, world.Tile{X: 3, Y: 1}, 1), "own coastal city")
	assert.False(t, w.IsNative(trireme, world.Tile{X: 3, Y: 1}, 2), "foreign coastal city")
	assert.False(t, w.IsNative(trireme, world.Tile{X: 0, Y: 1}, 1), "inland city")
	assert.False(t, w.IsNative(warriors, world.Tile{X: 9, Y: 9}, 1))
}

func TestWorld_Diplomacy(t *testing.T) {
	w, _ := newCoastWorld(t)
	rome, _ := w.Player(1)
	carthage, _ := w.Player(2)

	assert.True(t, w.AtWar(1, 2), "no contact counts as war")
	assert.False(t, w.AtWar(1, 1))
	assert.True(t, w.Allied(1, 1))

	rome.SetDiplState(2, world.Ceasefire)
	assert.False(t, w.AtWar(1, 2))
	assert.True(t, w.Dangerous(1, 2))

	rome.SetDiplState(2, world.Peace)
	assert.False(t, w.Dangerous(1, 2))
	assert.False(t, w.Allied(1, 2))

	rome.SetDiplState(2, world.Alliance)
	assert.True(t, w.Allied(1, 2))

	carthage.Barbarian = world.LandBarbarian
	assert.True(t, w.AtWar(1, 2))
	assert.False(t, w.AtWar(1, 9))
}

func TestWorld_UnitsAtTile(t *testing.T) {
	w, rules := newCoastWorld(t)
	rome, _ := w.Player(1)
	rome.SetDiplState(2, world.Peace)
	tile := world.Tile{X: 2, Y: 2}
	_, err := w.NewUnit(2, testutil.UnitType(t, rules, "warriors"), tile)
	require.NoError(t, err)

	assert.True(t, w.NonAlliedUnitAt(1, tile))
	assert.False(t, w.EnemyUnitAt(1, tile))
	assert.False(t, w.NonAlliedUnitAt(2, tile))

	rome.SetDiplState(2, world.War)
	assert.True(t, w.EnemyUnitAt(1, tile))
}

func TestWorld_TransferCity(t *testing.T) {
	w, _ := newCoastWorld(t)
	c, err := w.NewCity(1, "Roma", world.Tile{X: 1, Y: 1}, 2)
	require.NoError(t, err)
	c.BuildingWant["granary"] = 5
	c.Wonder = "pyramids"

	w.TransferCity(c, 2)
	assert.Equal(t, world.PlayerID(2), c.Owner)
	assert.Empty(t, c.BuildingWant)
	assert.Empty(t, c.Wonder)
	assert.Equal(t, []*world.City{c}, w.CitiesOf(2))
	assert.Empty(t, w.CitiesOf(1))
}

func TestWorld_AverageShieldSurplus(t *testing.T) {
	w, _ := newCoastWorld(t)
	assert.Equal(t, 0, w.AverageShieldSurplus(1))
	a, err := w.NewCity(1, "A", world.Tile{X: 0, Y: 0}, 1)
	require.NoError(t, err)
	b, err := w.NewCity(1, "B", world.Tile{X: 2, Y: 2}, 1)
	require.NoError(t, err)
	a.Surplus.Shield = 3
	b.Surplus.Shield = 6
	assert.Equal(t, 4, w.AverageShieldSurplus(1))
}

func TestWorld_RevealOnCreate(t *testing.T) {
	w, rules := newCoastWorld(t)
	rome, _ := w.Player(1)
	_, err := w.NewUnit(1, testutil.UnitType(t, rules, "warriors"), world.Tile{X: 0, Y: 0})
	require.NoError(t, err)

	assert.True(t, rome.Seen(world.Tile{X: 2, Y: 2}))
	assert.False(t, rome.Seen(world.Tile{X: 3, Y: 0}))

	w.Reveal(1, world.Tile{X: 5, Y: 0})
	assert.True(t, rome.Seen(world.Tile{X: 3, Y: 0}))
}

func TestNew_Panics(t *testing.T) {
	rules := testutil.ClassicRuleset(t)
	grass, _ := rules.Terrain("grassland")
	assert.Panics(t, func() { world.New(nil, world.NewMap(1, 1, grass)) })
	assert.Panics(t, func() { world.New(rules, nil) })
}

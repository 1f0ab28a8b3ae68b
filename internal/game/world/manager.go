package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
)

// ErrUnknownUnit is returned when a unit id does not resolve to a live unit.
var ErrUnknownUnit = errors.New("unknown unit")

// ErrUnknownCity is returned when a city id does not resolve to a live city.
var ErrUnknownCity = errors.New("unknown city")

// ErrUnknownPlayer is returned when a player id is not part of the game.
var ErrUnknownPlayer = errors.New("unknown player")

// visionRadius is the number of steps a unit or city reveals around itself.
const visionRadius = 2

// World is the id-indexed arena holding every player, city and unit. Units
// and cities draw their ids from one shared counter, so an id names at most
// one object for the lifetime of the world. References between objects are
// plain ids; a lookup that fails means the referent is gone.
//
// World is not safe for concurrent use; callers serialize turns.
type World struct {
	Rules *ruleset.Ruleset
	Map   *Map
	Turn  int

	players     map[PlayerID]*Player
	playerOrder []PlayerID
	units       map[UnitID]*Unit
	cities      map[CityID]*City
	nextID      int
	onRemove    []func(*Unit)
}

// New creates an empty world over m.
//
// Precondition: rules and m must be non-nil.
// Postcondition: Returns a world with no players, cities or units.
func New(rules *ruleset.Ruleset, m *Map) *World {
	if rules == nil {
		panic("world.New: rules must not be nil")
	}
	if m == nil {
		panic("world.New: map must not be nil")
	}
	return &World{
		Rules:   rules,
		Map:     m,
		Turn:    1,
		players: make(map[PlayerID]*Player),
		units:   make(map[UnitID]*Unit),
		cities:  make(map[CityID]*City),
	}
}

// AddPlayer registers p.
//
// Postcondition: Returns an error if a player with the same id exists.
func (w *World) AddPlayer(p *Player) error {
	if _, exists := w.players[p.ID]; exists {
		return fmt.Errorf("duplicate player ID: %d", p.ID)
	}
	w.players[p.ID] = p
	w.playerOrder = append(w.playerOrder, p.ID)
	sort.Slice(w.playerOrder, func(i, j int) bool { return w.playerOrder[i] < w.playerOrder[j] })
	return nil
}

// Player returns the player with id.
func (w *World) Player(id PlayerID) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// Players returns every player ordered by id.
func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.playerOrder))
	for _, id := range w.playerOrder {
		out = append(out, w.players[id])
	}
	return out
}

func (w *World) allocID() int {
	w.nextID++
	return w.nextID
}

// NewUnit creates a unit of type t for owner at tile with full hit points and moves.
//
// Precondition: owner must be registered; tile must lie on the map.
// Postcondition: Returns the stored unit with a fresh id, or an error.
func (w *World) NewUnit(owner PlayerID, t *ruleset.UnitType, tile Tile) (*Unit, error) {
	p, ok := w.players[owner]
	if !ok {
		return nil, fmt.Errorf("world.NewUnit: %w: %d", ErrUnknownPlayer, owner)
	}
	if !w.Map.InBounds(tile) {
		return nil, fmt.Errorf("world.NewUnit: tile %s is off the map", tile)
	}
	u := &Unit{
		ID:        UnitID(w.allocID()),
		Owner:     owner,
		Type:      t,
		Tile:      tile,
		HP:        t.HP,
		MovesLeft: t.MoveFrags(),
		Fuel:      t.Fuel,
	}
	w.units[u.ID] = u
	w.reveal(p, tile)
	return u, nil
}

// NewCity founds a city for owner at tile.
//
// Precondition: owner must be registered; tile must lie on the map and hold no city.
// Postcondition: Returns the stored city with a fresh id, or an error.
func (w *World) NewCity(owner PlayerID, name string, tile Tile, size int) (*City, error) {
	p, ok := w.players[owner]
	if !ok {
		return nil, fmt.Errorf("world.NewCity: %w: %d", ErrUnknownPlayer, owner)
	}
	if !w.Map.InBounds(tile) {
		return nil, fmt.Errorf("world.NewCity: tile %s is off the map", tile)
	}
	if existing := w.CityAt(tile); existing != nil {
		return nil, fmt.Errorf("world.NewCity: tile %s already holds city %q", tile, existing.Name)
	}
	if size < 1 {
		size = 1
	}
	c := &City{
		ID:           CityID(w.allocID()),
		Name:         name,
		Owner:        owner,
		Tile:         tile,
		Size:         size,
		BuildingWant: make(map[string]float64),
		TradePartner: make(map[CityID]bool),
		buildings:    make(map[string]bool),
	}
	w.cities[c.ID] = c
	w.reveal(p, tile)
	return c, nil
}

// Unit returns the live unit with id.
func (w *World) Unit(id UnitID) (*Unit, bool) {
	u, ok := w.units[id]
	return u, ok
}

// City returns the live city with id.
func (w *World) City(id CityID) (*City, bool) {
	c, ok := w.cities[id]
	return c, ok
}

// UnitsOf returns the units owned by player ordered by id.
func (w *World) UnitsOf(player PlayerID) []*Unit {
	var out []*Unit
	for _, u := range w.units {
		if u.Owner == player {
			out = append(out, u)
		}
	}
	sortUnits(out)
	return out
}

// AllUnits returns every live unit ordered by id.
func (w *World) AllUnits() []*Unit {
	out := make([]*Unit, 0, len(w.units))
	for _, u := range w.units {
		out = append(out, u)
	}
	sortUnits(out)
	return out
}

// CitiesOf returns the cities owned by player ordered by id.
func (w *World) CitiesOf(player PlayerID) []*City {
	var out []*City
	for _, c := range w.cities {
		if c.Owner == player {
			out = append(out, c)
		}
	}
	sortCities(out)
	return out
}

// AllCities returns every city ordered by id.
func (w *World) AllCities() []*City {
	out := make([]*City, 0, len(w.cities))
	for _, c := range w.cities {
		out = append(out, c)
	}
	sortCities(out)
	return out
}

// UnitsAt returns the units on tile ordered by id.
func (w *World) UnitsAt(tile Tile) []*Unit {
	var out []*Unit
	for _, u := range w.units {
		if u.Tile == tile {
			out = append(out, u)
		}
	}
	sortUnits(out)
	return out
}

// CityAt returns the city on tile, or nil.
func (w *World) CityAt(tile Tile) *City {
	for _, c := range w.cities {
		if c.Tile == tile {
			return c
		}
	}
	return nil
}

// CityOf returns the city u stands in, or nil.
func (w *World) CityOf(u *Unit) *City {
	return w.CityAt(u.Tile)
}

// Cargo returns the units aboard transport ordered by id.
func (w *World) Cargo(transport UnitID) []*Unit {
	var out []*Unit
	for _, u := range w.units {
		if u.TransportedBy == transport {
			out = append(out, u)
		}
	}
	sortUnits(out)
	return out
}

// FreeCapacity returns how many more units transport can carry.
func (w *World) FreeCapacity(transport *Unit) int {
	free := transport.Type.Capacity - len(w.Cargo(transport.ID))
	if free < 0 {
		return 0
	}
	return free
}

// MoveUnit places u and its cargo on to, revealing the surroundings for the owner.
//
// Precondition: to must lie on the map.
func (w *World) MoveUnit(u *Unit, to Tile) {
	u.Tile = to
	for _, c := range w.Cargo(u.ID) {
		c.Tile = to
	}
	if p, ok := w.players[u.Owner]; ok {
		w.reveal(p, to)
	}
}

// OnUnitRemoved registers fn to run whenever a unit leaves the world.
func (w *World) OnUnitRemoved(fn func(*Unit)) {
	w.onRemove = append(w.onRemove, fn)
}

// RemoveUnit deletes the unit with id. Cargo that cannot survive on the
// transport's tile is removed with it; other cargo is unloaded in place.
//
// Postcondition: Returns ErrUnknownUnit if id is not live.
func (w *World) RemoveUnit(id UnitID) error {
	u, ok := w.units[id]
	if !ok {
		return fmt.Errorf("world.RemoveUnit: %w: %d", ErrUnknownUnit, id)
	}
	delete(w.units, id)
	for _, c := range w.Cargo(id) {
		if w.IsNative(c.Type, c.Tile, c.Owner) {
			c.TransportedBy = 0
			continue
		}
		_ = w.RemoveUnit(c.ID)
	}
	for _, fn := range w.onRemove {
		fn(u)
	}
	return nil
}

// TransferCity hands c to newOwner.
func (w *World) TransferCity(c *City, newOwner PlayerID) {
	c.Owner = newOwner
	c.BuildingWant = make(map[string]float64)
	c.Wonder = ""
	if p, ok := w.players[newOwner]; ok {
		w.reveal(p, c.Tile)
	}
}

// Allied reports whether a and b share a side.
func (w *World) Allied(a, b PlayerID) bool {
	if a == b {
		return true
	}
	pa, ok := w.players[a]
	if !ok {
		return false
	}
	s := pa.DiplState(b)
	return s == Alliance || s == Team
}

// AtWar reports whether a and b may attack each other.
func (w *World) AtWar(a, b PlayerID) bool {
	if a == b {
		return false
	}
	pa, okA := w.players[a]
	pb, okB := w.players[b]
	if !okA || !okB {
		return false
	}
	if pa.IsBarbarian() || pb.IsBarbarian() {
		return true
	}
	s := pa.DiplState(b)
	return s == War || s == NoContact
}

// Dangerous reports whether b is a potential threat to a.
func (w *World) Dangerous(a, b PlayerID) bool {
	if a == b {
		return false
	}
	if w.AtWar(a, b) {
		return true
	}
	pa, ok := w.players[a]
	if !ok {
		return false
	}
	return pa.DiplState(b) == Ceasefire
}

// IsNative reports whether units of t may stand on tile. Sea units may also
// enter coastal cities of owner's side.
func (w *World) IsNative(t *ruleset.UnitType, tile Tile, owner PlayerID) bool {
	terrain := w.Map.Terrain(tile)
	if terrain == nil {
		return false
	}
	if t.Class.IsNativeTo(terrain) {
		return true
	}
	if c := w.CityAt(tile); c != nil && w.Allied(owner, c.Owner) {
		for _, n := range w.Map.Neighbors(tile) {
			if t.Class.IsNativeTo(w.Map.Terrain(n)) {
				return true
			}
		}
	}
	return false
}

// NonAlliedUnitAt reports whether tile holds a unit not allied with player.
func (w *World) NonAlliedUnitAt(player PlayerID, tile Tile) bool {
	for _, u := range w.units {
		if u.Tile == tile && !w.Allied(player, u.Owner) {
			return true
		}
	}
	return false
}

// EnemyUnitAt reports whether tile holds a unit player is at war with.
func (w *World) EnemyUnitAt(player PlayerID, tile Tile) bool {
	for _, u := range w.units {
		if u.Tile == tile && w.AtWar(player, u.Owner) {
			return true
		}
	}
	return false
}

// AverageShieldSurplus returns the mean shield surplus over player's cities, 0 without cities.
func (w *World) AverageShieldSurplus(player PlayerID) int {
	total, n := 0, 0
	for _, c := range w.cities {
		if c.Owner == player {
			total += c.Surplus.Shield
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / n
}

// Reveal marks the surroundings of tile as seen by player.
func (w *World) Reveal(player PlayerID, tile Tile) {
	if p, ok := w.players[player]; ok {
		w.reveal(p, tile)
	}
}

func (w *World) reveal(p *Player, tile Tile) {
	for _, t := range w.Map.Square(tile, visionRadius) {
		p.Reveal(t)
	}
}

func sortUnits(units []*Unit) {
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
}

func sortCities(cities []*City) {
	sort.Slice(cities, func(i, j int) bool { return cities[i].ID < cities[j].ID })
}

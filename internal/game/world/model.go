// Package world provides the game world model: a tile map, players, cities
// and units held in an id-indexed arena.
package world

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
)

// Direction is one of the eight compass directions between adjacent tiles.
type Direction int

// Compass directions.
const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
)

// Directions lists all eight compass directions in clockwise order.
var Directions = []Direction{North, Northeast, East, Southeast, South, Southwest, West, Northwest}

var directionDeltas = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

var directionNames = [8]string{
	"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest",
}

// String returns the lower-case direction name.
func (d Direction) String() string {
	if d < North || d > Northwest {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return (d + 4) % 8
}

// Tile is a map position. Tiles are plain values and compare with ==.
type Tile struct {
	X int
	Y int
}

// String renders the tile as "(x,y)".
func (t Tile) String() string {
	return fmt.Sprintf("(%d,%d)", t.X, t.Y)
}

// Step returns the tile one step away in direction d. The result may lie off the map.
func (t Tile) Step(d Direction) Tile {
	delta := directionDeltas[d]
	return Tile{X: t.X + delta[0], Y: t.Y + delta[1]}
}

// Distance returns the number of single steps between t and o.
func (t Tile) Distance(o Tile) int {
	dx := abs(t.X - o.X)
	dy := abs(t.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// SqDistance returns the squared euclidean distance between t and o.
func (t Tile) SqDistance(o Tile) int {
	dx := t.X - o.X
	dy := t.Y - o.Y
	return dx*dx + dy*dy
}

// Adjacent reports whether o is one of the eight neighbours of t.
func (t Tile) Adjacent(o Tile) bool {
	return t.Distance(o) == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// TileInfo is the mutable content of one map square.
type TileInfo struct {
	Terrain *ruleset.Terrain
	Hut     bool
}

// Map is a rectangular, non-wrapping tile grid.
type Map struct {
	Width  int
	Height int
	tiles  []TileInfo
}

// NewMap creates a map filled with terrain.
//
// Precondition: width and height must be positive; terrain must be non-nil.
func NewMap(width, height int, terrain *ruleset.Terrain) *Map {
	if width < 1 || height < 1 {
		panic("world.NewMap: width and height must be > 0")
	}
	if terrain == nil {
		panic("world.NewMap: terrain must not be nil")
	}
	m := &Map{Width: width, Height: height, tiles: make([]TileInfo, width*height)}
	for i := range m.tiles {
		m.tiles[i].Terrain = terrain
	}
	return m
}

// InBounds reports whether t lies on the map.
func (m *Map) InBounds(t Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < m.Width && t.Y < m.Height
}

// At returns the content of t, or nil when t lies off the map.
func (m *Map) At(t Tile) *TileInfo {
	if !m.InBounds(t) {
		return nil
	}
	return &m.tiles[t.Y*m.Width+t.X]
}

// Terrain returns the terrain of t, or nil when t lies off the map.
func (m *Map) Terrain(t Tile) *ruleset.Terrain {
	info := m.At(t)
	if info == nil {
		return nil
	}
	return info.Terrain
}

// Neighbors returns the on-map tiles adjacent to t in clockwise order from north.
func (m *Map) Neighbors(t Tile) []Tile {
	out := make([]Tile, 0, 8)
	for _, d := range Directions {
		n := t.Step(d)
		if m.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Square returns the on-map tiles within radius steps of center, center included,
// in row-major order.
func (m *Map) Square(center Tile, radius int) []Tile {
	out := make([]Tile, 0, (2*radius+1)*(2*radius+1))
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			t := Tile{X: x, Y: y}
			if m.InBounds(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// IsOceanic reports whether t is water.
func (m *Map) IsOceanic(t Tile) bool {
	terrain := m.Terrain(t)
	return terrain != nil && terrain.Oceanic
}

// NearOcean reports whether any neighbour of t is water.
func (m *Map) NearOcean(t Tile) bool {
	for _, n := range m.Neighbors(t) {
		if m.IsOceanic(n) {
			return true
		}
	}
	return false
}

// PlayerID identifies a player.
type PlayerID int

// DiplState is the diplomatic relation between two players.
type DiplState int

// Diplomatic states.
const (
	NoContact DiplState = iota
	War
	Ceasefire
	Peace
	Alliance
	Team
)

var diplNames = map[DiplState]string{
	NoContact: "no_contact",
	War:       "war",
	Ceasefire: "ceasefire",
	Peace:     "peace",
	Alliance:  "alliance",
	Team:      "team",
}

// String returns the diplomatic state name.
func (d DiplState) String() string {
	if s, ok := diplNames[d]; ok {
		return s
	}
	return fmt.Sprintf("dipl(%d)", int(d))
}

// ParseDiplState parses a diplomatic state name.
func ParseDiplState(s string) (DiplState, error) {
	for k, v := range diplNames {
		if v == s {
			return k, nil
		}
	}
	return NoContact, fmt.Errorf("unknown diplomatic state %q", s)
}

// Handicap restricts what an AI player may know or do.
type Handicap string

// Handicaps understood by the engine.
const (
	// HDanger makes the AI assume every city is in some danger.
	HDanger Handicap = "danger"
	// HFuzzy makes the AI occasionally ignore good decisions.
	HFuzzy Handicap = "fuzzy"
	// HMap restricts the AI to the tiles it has seen.
	HMap Handicap = "map"
	// HAway leaves sentried and fortified units alone.
	HAway Handicap = "away"
	// HTargets limits rampage targets to seen tiles.
	HTargets Handicap = "targets"
	// HAssessDangerLimited shortens the danger horizon.
	HAssessDangerLimited Handicap = "assess_danger_limited"
)

// Barbarian marks a barbarian player and its kind.
type Barbarian int

// Barbarian kinds.
const (
	NotBarbarian Barbarian = iota
	LandBarbarian
	SeaBarbarian
)

// Player is one participant of the game.
type Player struct {
	ID   PlayerID
	Name string
	// AI marks players whose units the engine controls.
	AI        bool
	Barbarian Barbarian
	// CPUHog selects the longest danger horizon.
	CPUHog bool
	// Fuzzy is the per-mille chance that a fuzzy decision is flipped.
	Fuzzy     int
	Handicaps map[Handicap]bool
	Gold      int

	diplomacy map[PlayerID]DiplState
	known     map[Tile]bool
}

// NewPlayer creates a player with no diplomatic contacts.
func NewPlayer(id PlayerID, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Handicaps: make(map[Handicap]bool),
		diplomacy: make(map[PlayerID]DiplState),
		known:     make(map[Tile]bool),
	}
}

// HasHandicap reports whether h applies to the player.
func (p *Player) HasHandicap(h Handicap) bool {
	return p.Handicaps[h]
}

// IsBarbarian reports whether the player is a barbarian of any kind.
func (p *Player) IsBarbarian() bool {
	return p.Barbarian != NotBarbarian
}

// SetDiplState records the relation from p to other.
func (p *Player) SetDiplState(other PlayerID, state DiplState) {
	p.diplomacy[other] = state
}

// DiplState returns the relation from p to other.
func (p *Player) DiplState(other PlayerID) DiplState {
	if other == p.ID {
		return Team
	}
	return p.diplomacy[other]
}

// Reveal marks t as seen by the player.
func (p *Player) Reveal(t Tile) {
	p.known[t] = true
}

// Knows reports whether the player has seen t. Players without the map
// handicap know every tile.
func (p *Player) Knows(t Tile) bool {
	if !p.HasHandicap(HMap) {
		return true
	}
	return p.known[t]
}

// Seen reports whether one of the player's units has ever seen t,
// regardless of handicaps.
func (p *Player) Seen(t Tile) bool {
	return p.known[t]
}

// Output is a city's per-turn surplus.
type Output struct {
	Food   int
	Shield int
	Trade  int
}

// CityID identifies a city. Cities and units share one id space.
type CityID int

// City is a settlement owned by a player.
type City struct {
	ID      CityID
	Name    string
	Owner   PlayerID
	Tile    Tile
	Size    int
	Surplus Output
	// MilitaryUnhappy counts citizens made unhappy by units abroad.
	MilitaryUnhappy int
	// BuildingWant is the production advisor's base want per improvement id.
	BuildingWant map[string]float64
	// Wonder is the improvement id of a wonder under construction, if any.
	Wonder       string
	ShieldStock  int
	TradePartner map[CityID]bool

	buildings map[string]bool
}

// HasBuilding reports whether the city contains improvement id.
func (c *City) HasBuilding(id string) bool {
	return c.buildings[id]
}

// AddBuilding records improvement id as built.
func (c *City) AddBuilding(id string) {
	if c.buildings == nil {
		c.buildings = make(map[string]bool)
	}
	c.buildings[id] = true
}

// Buildings returns the ids of built improvements.
func (c *City) Buildings() []string {
	out := make([]string, 0, len(c.buildings))
	for id := range c.buildings {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// UnitID identifies a unit. Zero is reserved for virtual units.
type UnitID int

// Activity is what a unit is doing this turn.
type Activity int

// Unit activities.
const (
	ActivityIdle Activity = iota
	ActivityFortifying
	ActivityFortified
	ActivitySentry
	ActivityGoto
	ActivityPillage
	ActivityExplore
)

var activityNames = [...]string{"idle", "fortifying", "fortified", "sentry", "goto", "pillage", "explore"}

// String returns the activity name.
func (a Activity) String() string {
	if a < 0 || int(a) >= len(activityNames) {
		return fmt.Sprintf("activity(%d)", int(a))
	}
	return activityNames[a]
}

// ParseActivity parses an activity name.
func ParseActivity(s string) (Activity, error) {
	for i, n := range activityNames {
		if n == s {
			return Activity(i), nil
		}
	}
	return ActivityIdle, fmt.Errorf("unknown activity %q", s)
}

// Unit is a single piece on the map. A Unit with ID 0 is virtual: it exists
// only to ask what-if questions and is never stored in a World.
type Unit struct {
	ID        UnitID
	Owner     PlayerID
	Type      *ruleset.UnitType
	Tile      Tile
	HP        int
	MovesLeft int
	Veteran   int
	Activity  Activity
	GotoTile  *Tile
	HomeCity  CityID
	// TransportedBy is the id of the carrying unit, or 0.
	TransportedBy UnitID
	// Moved is set once the unit moved this turn.
	Moved bool
	// HasOrders marks units under human orders.
	HasOrders bool
	// Fuel is the number of turns left before an air unit must refuel.
	Fuel int
}

// IsVirtual reports whether the unit is a what-if unit.
func (u *Unit) IsVirtual() bool {
	return u.ID == 0
}

// Transported reports whether the unit is aboard a transport.
func (u *Unit) Transported() bool {
	return u.TransportedBy != 0
}

// HPFraction returns hp / max hp.
func (u *Unit) HPFraction() float64 {
	return float64(u.HP) / float64(u.Type.HP)
}

// String renders the unit for logs.
func (u *Unit) String() string {
	return fmt.Sprintf("%s#%d%s", u.Type.ID, u.ID, u.Tile)
}

// NewVirtualUnit creates a what-if unit with full hit points and moves.
func NewVirtualUnit(owner PlayerID, t *ruleset.UnitType, tile Tile, vet int) *Unit {
	return &Unit{
		Owner:     owner,
		Type:      t,
		Tile:      tile,
		HP:        t.HP,
		MovesLeft: t.MoveFrags(),
		Veteran:   vet,
	}
}

package world

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactics/internal/game/ruleset"
)

// yamlScenarioFile is the top-level YAML structure for scenario files.
type yamlScenarioFile struct {
	Scenario yamlScenario `yaml:"scenario"`
}

type yamlScenario struct {
	Name    string       `yaml:"name"`
	Turn    int          `yaml:"turn"`
	Map     yamlMap      `yaml:"map"`
	Players []yamlPlayer `yaml:"players"`
	Cities  []yamlCity   `yaml:"cities"`
	Units   []yamlUnit   `yaml:"units"`
}

type yamlMap struct {
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	DefaultTerrain string   `yaml:"default_terrain"`
	Rows           []string `yaml:"rows"`
	Huts           [][2]int `yaml:"huts"`
}

type yamlPlayer struct {
	ID        int            `yaml:"id"`
	Name      string         `yaml:"name"`
	AI        bool           `yaml:"ai"`
	Barbarian string         `yaml:"barbarian"`
	CPUHog    bool           `yaml:"cpuhog"`
	Fuzzy     int            `yaml:"fuzzy"`
	Gold      int            `yaml:"gold"`
	Handicaps []string       `yaml:"handicaps"`
	Diplomacy map[int]string `yaml:"diplomacy"`
}

type yamlCity struct {
	Name            string             `yaml:"name"`
	Owner           int                `yaml:"owner"`
	At              [2]int             `yaml:"at"`
	Size            int                `yaml:"size"`
	Food            int                `yaml:"food"`
	Shield          int                `yaml:"shield"`
	Trade           int                `yaml:"trade"`
	Buildings       []string           `yaml:"buildings"`
	MilitaryUnhappy int                `yaml:"military_unhappy"`
	BuildingWant    map[string]float64 `yaml:"building_want"`
	Wonder          string             `yaml:"wonder"`
}

type yamlUnit struct {
	Label    string  `yaml:"label"`
	Owner    int     `yaml:"owner"`
	Type     string  `yaml:"type"`
	At       [2]int  `yaml:"at"`
	HP       *int    `yaml:"hp"`
	Moves    *int    `yaml:"moves"`
	Veteran  int     `yaml:"veteran"`
	Activity string  `yaml:"activity"`
	Goto     *[2]int `yaml:"goto"`
	Home     string  `yaml:"home"`
	Aboard   string  `yaml:"aboard"`
	Orders   bool    `yaml:"orders"`
	Moved    bool    `yaml:"moved"`
}

// Scenario is a loaded world plus the labels given to units in the file.
type Scenario struct {
	Name   string
	World  *World
	Labels map[string]UnitID
}

// LoadScenarioFromFile reads and validates a scenario YAML file.
//
// Precondition: path must point to a valid YAML scenario file; rules must be non-nil.
// Postcondition: Returns a populated Scenario or a non-nil error.
func LoadScenarioFromFile(path string, rules *ruleset.Ruleset) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	return LoadScenarioFromBytes(data, rules)
}

// LoadScenarioFromBytes parses a scenario from YAML bytes and builds its world.
//
// Precondition: data must be valid YAML conforming to the scenario schema.
// Postcondition: Returns a populated Scenario or a non-nil error.
func LoadScenarioFromBytes(data []byte, rules *ruleset.Ruleset) (*Scenario, error) {
	var file yamlScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	sc, err := convertYAMLScenario(file.Scenario, rules)
	if err != nil {
		return nil, fmt.Errorf("building scenario %q: %w", file.Scenario.Name, err)
	}
	return sc, nil
}

func convertYAMLScenario(ys yamlScenario, rules *ruleset.Ruleset) (*Scenario, error) {
	m, err := convertYAMLMap(ys.Map, rules)
	if err != nil {
		return nil, err
	}
	w := New(rules, m)
	if ys.Turn > 0 {
		w.Turn = ys.Turn
	}

	for _, yp := range ys.Players {
		p, err := convertYAMLPlayer(yp)
		if err != nil {
			return nil, err
		}
		if err := w.AddPlayer(p); err != nil {
			return nil, err
		}
	}
	// Diplomacy is symmetric unless both sides declare it.
	for _, yp := range ys.Players {
		for other, state := range yp.Diplomacy {
			s, err := ParseDiplState(state)
			if err != nil {
				return nil, fmt.Errorf("player %d: %w", yp.ID, err)
			}
			op, ok := w.Player(PlayerID(other))
			if !ok {
				return nil, fmt.Errorf("player %d: diplomacy with %w %d", yp.ID, ErrUnknownPlayer, other)
			}
			self, _ := w.Player(PlayerID(yp.ID))
			self.SetDiplState(op.ID, s)
			if _, declared := findPlayer(ys.Players, other).Diplomacy[yp.ID]; !declared {
				op.SetDiplState(self.ID, s)
			}
		}
	}

	cityByName := make(map[string]*City, len(ys.Cities))
	for _, yc := range ys.Cities {
		c, err := w.NewCity(PlayerID(yc.Owner), yc.Name, Tile{X: yc.At[0], Y: yc.At[1]}, yc.Size)
		if err != nil {
			return nil, err
		}
		c.Surplus = Output{Food: yc.Food, Shield: yc.Shield, Trade: yc.Trade}
		c.MilitaryUnhappy = yc.MilitaryUnhappy
		c.Wonder = yc.Wonder
		for _, b := range yc.Buildings {
			if _, ok := rules.Improvement(b); !ok {
				return nil, fmt.Errorf("city %q: unknown improvement %q", yc.Name, b)
			}
			c.AddBuilding(b)
		}
		for b, want := range yc.BuildingWant {
			c.BuildingWant[b] = want
		}
		cityByName[yc.Name] = c
	}

	sc := &Scenario{Name: ys.Name, World: w, Labels: make(map[string]UnitID)}
	var aboard []struct {
		unit  *Unit
		label string
	}
	for i, yu := range ys.Units {
		t, ok := rules.UnitType(yu.Type)
		if !ok {
			return nil, fmt.Errorf("unit %d: unknown unit type %q", i, yu.Type)
		}
		u, err := w.NewUnit(PlayerID(yu.Owner), t, Tile{X: yu.At[0], Y: yu.At[1]})
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		if yu.HP != nil {
			u.HP = *yu.HP
		}
		if yu.Moves != nil {
			u.MovesLeft = *yu.Moves
		}
		u.Veteran = yu.Veteran
		u.HasOrders = yu.Orders
		u.Moved = yu.Moved
		if yu.Activity != "" {
			a, err := ParseActivity(yu.Activity)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			u.Activity = a
		}
		if yu.Goto != nil {
			g := Tile{X: yu.Goto[0], Y: yu.Goto[1]}
			u.GotoTile = &g
		}
		if yu.Home != "" {
			home, ok := cityByName[yu.Home]
			if !ok {
				return nil, fmt.Errorf("unit %d: unknown home city %q", i, yu.Home)
			}
			u.HomeCity = home.ID
		}
		if yu.Label != "" {
			if _, dup := sc.Labels[yu.Label]; dup {
				return nil, fmt.Errorf("unit %d: duplicate label %q", i, yu.Label)
			}
			sc.Labels[yu.Label] = u.ID
		}
		if yu.Aboard != "" {
			aboard = append(aboard, struct {
				unit  *Unit
				label string
			}{u, yu.Aboard})
		}
	}
	for _, a := range aboard {
		id, ok := sc.Labels[a.label]
		if !ok {
			return nil, fmt.Errorf("unit %s: unknown transport label %q", a.unit, a.label)
		}
		transport, _ := w.Unit(id)
		if transport.Tile != a.unit.Tile || !rules.CanCarry(transport.Type, a.unit.Type) {
			return nil, fmt.Errorf("unit %s cannot board %s", a.unit, transport)
		}
		a.unit.TransportedBy = id
	}
	return sc, nil
}

func convertYAMLMap(ym yamlMap, rules *ruleset.Ruleset) (*Map, error) {
	width, height := ym.Width, ym.Height
	if len(ym.Rows) > 0 {
		height = len(ym.Rows)
		width = len(ym.Rows[0])
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("map must have positive width and height")
	}
	defID := ym.DefaultTerrain
	if defID == "" {
		defID = "grassland"
	}
	def, ok := rules.Terrain(defID)
	if !ok {
		return nil, fmt.Errorf("unknown default terrain %q", defID)
	}
	m := NewMap(width, height, def)
	for y, row := range ym.Rows {
		row = strings.TrimRight(row, " ")
		if len(row) != width {
			return nil, fmt.Errorf("map row %d has length %d, want %d", y, len(row), width)
		}
		for x, ch := range row {
			terrain, ok := rules.TerrainBySymbol(string(ch))
			if !ok {
				return nil, fmt.Errorf("map row %d: unknown terrain symbol %q", y, ch)
			}
			m.At(Tile{X: x, Y: y}).Terrain = terrain
		}
	}
	for _, h := range ym.Huts {
		info := m.At(Tile{X: h[0], Y: h[1]})
		if info == nil {
			return nil, fmt.Errorf("hut at (%d,%d) is off the map", h[0], h[1])
		}
		info.Hut = true
	}
	return m, nil
}

func convertYAMLPlayer(yp yamlPlayer) (*Player, error) {
	if yp.ID <= 0 {
		return nil, fmt.Errorf("player %q: id must be > 0", yp.Name)
	}
	p := NewPlayer(PlayerID(yp.ID), yp.Name)
	p.AI = yp.AI
	p.CPUHog = yp.CPUHog
	p.Fuzzy = yp.Fuzzy
	p.Gold = yp.Gold
	switch yp.Barbarian {
	case "", "none":
	case "land":
		p.Barbarian = LandBarbarian
	case "sea":
		p.Barbarian = SeaBarbarian
	default:
		return nil, fmt.Errorf("player %d: unknown barbarian kind %q", yp.ID, yp.Barbarian)
	}
	for _, h := range yp.Handicaps {
		p.Handicaps[Handicap(h)] = true
	}
	return p, nil
}

func findPlayer(players []yamlPlayer, id int) yamlPlayer {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return yamlPlayer{}
}

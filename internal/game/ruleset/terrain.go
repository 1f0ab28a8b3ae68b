package ruleset

// Terrain describes one kind of map tile.
type Terrain struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Symbol is the single character used for the terrain in scenario maps.
	Symbol string `yaml:"symbol"`
	// MoveCost is the cost, in whole move points, of entering the terrain.
	MoveCost int `yaml:"move_cost"`
	// DefenseBonus is the extra defense percentage for units on the terrain.
	DefenseBonus int `yaml:"defense_bonus"`
	// Oceanic marks water terrain.
	Oceanic bool `yaml:"oceanic"`
}

// Improvement genus values.
const (
	GenusImprovement = "Improvement"
	GenusGreatWonder = "GreatWonder"
	GenusSmallWonder = "SmallWonder"
)

// Improvement is a city building.
type Improvement struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Genus     string `yaml:"genus"`
	BuildCost int    `yaml:"build_cost"`
	// DefendBonus maps attacker class ids to the extra defense percentage the
	// building gives city defenders.
	DefendBonus map[string]int `yaml:"defend_bonus"`
	// HPRegen is the extra percentage of max hit points restored each turn to
	// units in the city.
	HPRegen int `yaml:"hp_regen"`
	// Airport allows airlifting units to and from the city.
	Airport bool `yaml:"airport"`
	// CoastalOnly restricts the building to cities next to oceanic terrain.
	CoastalOnly bool `yaml:"coastal_only"`
}

// IsWonder reports whether the improvement is a great or small wonder.
func (i *Improvement) IsWonder() bool {
	return i.Genus == GenusGreatWonder || i.Genus == GenusSmallWonder
}

// DefendBonusAgainst returns the defend bonus against attackers of class.
func (i *Improvement) DefendBonusAgainst(class *UnitClass) int {
	if class == nil {
		return 0
	}
	return i.DefendBonus[class.ID]
}

// VeteranLevel is one rung of the veteran ladder.
type VeteranLevel struct {
	Name string `yaml:"name"`
	// PowerFactor is the combat strength percentage at this level.
	PowerFactor int `yaml:"power_factor"`
}

// DefaultVeteranLevels is used when a ruleset declares no veteran ladder.
var DefaultVeteranLevels = []VeteranLevel{
	{Name: "green", PowerFactor: 100},
	{Name: "veteran", PowerFactor: 150},
	{Name: "hardened", PowerFactor: 175},
	{Name: "elite", PowerFactor: 200},
}

package ai

import "github.com/cory-johannsen/tactics/internal/game/world"

// Invasion counts own forces converging on an enemy city.
type Invasion struct {
	// Attack is the number of attacks the converging units can deliver.
	Attack int
	// Occupy is the number of converging units able to take the city.
	Occupy int
}

// CityData is the per-turn threat and target scratch of one city.
type CityData struct {
	Danger         int
	Urgency        int
	GraveDanger    int
	WallValue      int
	DiplomatThreat bool
	HasDiplomat    bool
	// DangerReduced maps improvement ids to the danger they would remove.
	DangerReduced map[string]int
	// BuildingWant holds building wants reevaluated after assessment.
	BuildingWant map[string]Want
	Invasion     Invasion
	// Attack and BCost are the rating and cost of own reinforcements near an enemy city.
	Attack int
	BCost  int
	// Worth is the value of the city to whoever owns it.
	Worth int
	// Assessed marks cities whose danger has been computed this turn.
	Assessed bool
}

// TurnCache is the scratch of one player turn, keyed by city id.
// It is rebuilt wholesale at the start of every turn.
type TurnCache struct {
	cities map[world.CityID]*CityData
}

// NewTurnCache creates an empty cache.
func NewTurnCache() *TurnCache {
	return &TurnCache{cities: make(map[world.CityID]*CityData)}
}

// City returns the scratch of id, creating it on first use.
//
// Postcondition: Returns a non-nil CityData.
func (c *TurnCache) City(id world.CityID) *CityData {
	d, ok := c.cities[id]
	if !ok {
		d = &CityData{
			DangerReduced: make(map[string]int),
			BuildingWant:  make(map[string]Want),
		}
		c.cities[id] = d
	}
	return d
}

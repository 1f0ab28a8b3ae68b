package ai

import (
	"sort"

	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Link sentinels for UnitData.
const (
	// BodyguardNone means no guard is assigned or wanted.
	BodyguardNone = 0
	// BodyguardWanted means the unit asked for a guard that has not arrived.
	BodyguardWanted = -1
	// FerryNone means the unit neither has nor wants a boat.
	FerryNone = 0
	// FerryWanted means the unit is waiting for a boat.
	FerryWanted = -1
	// FerryAvailable marks a boat with no passenger in charge of it.
	FerryAvailable = -1
)

// UnitData is the engine's bookkeeping for one unit. Links are plain ids
// resolved through the world; a failed lookup means the referent is gone.
type UnitData struct {
	Task Task
	// Target is the prey of a hunter.
	Target world.UnitID
	// Charge is the unit or city this unit guards. Units and cities share
	// one id space, so the id resolves to at most one of them.
	Charge int
	// Bodyguard is the guard of this unit, BodyguardNone or BodyguardWanted.
	Bodyguard int
	// Ferryboat is the boat reserved by this unit, FerryNone or FerryWanted.
	Ferryboat int
	// Passenger is, for boats, the unit in charge of the boat or FerryAvailable.
	Passenger int
	// Done marks units handled for the rest of the turn.
	Done bool
	// Hunted holds the players currently hunting this unit.
	Hunted map[world.PlayerID]bool
	// CurPos and PrevPos are the unit's tiles at the start of this and the
	// previous turn; hunters use them to tell where prey is heading.
	CurPos  *world.Tile
	PrevPos *world.Tile
}

// Store holds UnitData for every unit the engine has seen.
type Store struct {
	units map[world.UnitID]*UnitData
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{units: make(map[world.UnitID]*UnitData)}
}

// Get returns the data of id, creating it with TaskNone on first use.
//
// Postcondition: Returns a non-nil UnitData.
func (s *Store) Get(id world.UnitID) *UnitData {
	d, ok := s.units[id]
	if !ok {
		d = &UnitData{Hunted: make(map[world.PlayerID]bool)}
		s.units[id] = d
	}
	return d
}

// Lookup returns the data of id if present.
func (s *Store) Lookup(id world.UnitID) (*UnitData, bool) {
	d, ok := s.units[id]
	return d, ok
}

// Delete forgets id.
func (s *Store) Delete(id world.UnitID) {
	delete(s.units, id)
}

// IDs returns every unit id with data, ascending.
func (s *Store) IDs() []world.UnitID {
	out := make([]world.UnitID, 0, len(s.units))
	for id := range s.units {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PersistedUnit is the part of UnitData that survives a save.
type PersistedUnit struct {
	UnitID    world.UnitID
	Task      Task
	Ferryboat int
	Passenger int
	Charge    int
	Bodyguard int
}

// Snapshot returns the persistent state of every unit, ordered by id.
func (s *Store) Snapshot() []PersistedUnit {
	out := make([]PersistedUnit, 0, len(s.units))
	for _, id := range s.IDs() {
		d := s.units[id]
		out = append(out, PersistedUnit{
			UnitID:    id,
			Task:      d.Task,
			Ferryboat: d.Ferryboat,
			Passenger: d.Passenger,
			Charge:    d.Charge,
			Bodyguard: d.Bodyguard,
		})
	}
	return out
}

// Restore loads persisted state, replacing the links of the named units.
func (s *Store) Restore(rows []PersistedUnit) {
	for _, r := range rows {
		d := s.Get(r.UnitID)
		d.Task = r.Task
		d.Ferryboat = r.Ferryboat
		d.Passenger = r.Passenger
		d.Charge = r.Charge
		d.Bodyguard = r.Bodyguard
	}
}

package ruleset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ruleset is the immutable set of rule tables for one game. Derived lookup
// tables (carrying, guarding, ferrying) are computed once in New and never
// mutated afterwards, so a Ruleset may be shared by concurrent readers.
type Ruleset struct {
	classes      map[string]*UnitClass
	units        map[string]*UnitType
	terrains     map[string]*Terrain
	improvements map[string]*Improvement
	veterans     []VeteranLevel

	unitOrder        []*UnitType
	improvementOrder []*Improvement
	terrainBySymbol  map[string]*Terrain

	ferry            map[string]bool
	carriesOccupiers map[string]bool
	potentialCharges map[string][]*UnitType
	canCarry         map[string]map[string]bool
}

// Fragment is one YAML ruleset document. A ruleset directory may split its
// content across any number of fragments.
type Fragment struct {
	Classes       []*UnitClass   `yaml:"classes"`
	Units         []*UnitType    `yaml:"units"`
	Terrains      []*Terrain     `yaml:"terrains"`
	Improvements  []*Improvement `yaml:"improvements"`
	VeteranLevels []VeteranLevel `yaml:"veteran_levels"`
}

// New validates the fragments and builds the derived tables.
//
// Precondition: at least one unit class, unit type and terrain must be present.
// Postcondition: Returns a fully indexed Ruleset or a non-nil error naming every violation.
func New(fragments ...Fragment) (*Ruleset, error) {
	rs := &Ruleset{
		classes:          make(map[string]*UnitClass),
		units:            make(map[string]*UnitType),
		terrains:         make(map[string]*Terrain),
		improvements:     make(map[string]*Improvement),
		terrainBySymbol:  make(map[string]*Terrain),
		ferry:            make(map[string]bool),
		carriesOccupiers: make(map[string]bool),
		potentialCharges: make(map[string][]*UnitType),
		canCarry:         make(map[string]map[string]bool),
	}
	var errs []string
	for _, f := range fragments {
		for _, c := range f.Classes {
			if _, dup := rs.classes[c.ID]; dup || c.ID == "" {
				errs = append(errs, fmt.Sprintf("invalid or duplicate unit class %q", c.ID))
				continue
			}
			rs.classes[c.ID] = c
		}
		for _, t := range f.Terrains {
			if _, dup := rs.terrains[t.ID]; dup || t.ID == "" {
				errs = append(errs, fmt.Sprintf("invalid or duplicate terrain %q", t.ID))
				continue
			}
			if t.MoveCost < 1 {
				t.MoveCost = 1
			}
			rs.terrains[t.ID] = t
			if t.Symbol != "" {
				rs.terrainBySymbol[t.Symbol] = t
			}
		}
		for _, u := range f.Units {
			if _, dup := rs.units[u.ID]; dup || u.ID == "" {
				errs = append(errs, fmt.Sprintf("invalid or duplicate unit type %q", u.ID))
				continue
			}
			rs.units[u.ID] = u
		}
		for _, i := range f.Improvements {
			if _, dup := rs.improvements[i.ID]; dup || i.ID == "" {
				errs = append(errs, fmt.Sprintf("invalid or duplicate improvement %q", i.ID))
				continue
			}
			if i.Genus == "" {
				i.Genus = GenusImprovement
			}
			rs.improvements[i.ID] = i
		}
		rs.veterans = append(rs.veterans, f.VeteranLevels...)
	}
	if len(rs.veterans) == 0 {
		rs.veterans = DefaultVeteranLevels
	}
	if len(rs.classes) == 0 {
		errs = append(errs, "ruleset has no unit classes")
	}
	if len(rs.units) == 0 {
		errs = append(errs, "ruleset has no unit types")
	}
	if len(rs.terrains) == 0 {
		errs = append(errs, "ruleset has no terrains")
	}

	for _, id := range sortedKeys(rs.classes) {
		c := rs.classes[id]
		c.native = make(map[string]bool, len(c.Native))
		for _, tid := range c.Native {
			if _, ok := rs.terrains[tid]; !ok {
				errs = append(errs, fmt.Sprintf("unit class %q: unknown native terrain %q", c.ID, tid))
				continue
			}
			c.native[tid] = true
		}
	}
	for _, id := range sortedKeys(rs.units) {
		u := rs.units[id]
		cls, ok := rs.classes[u.ClassID]
		if !ok {
			errs = append(errs, fmt.Sprintf("unit type %q: unknown class %q", u.ID, u.ClassID))
			continue
		}
		u.Class = cls
		if u.HP < 1 || u.Firepower < 1 || u.MoveRate < 1 {
			errs = append(errs, fmt.Sprintf("unit type %q: hp, firepower and move_rate must be positive", u.ID))
		}
		for _, cid := range u.Cargo {
			if _, ok := rs.classes[cid]; !ok {
				errs = append(errs, fmt.Sprintf("unit type %q: unknown cargo class %q", u.ID, cid))
			}
		}
		u.index()
		rs.unitOrder = append(rs.unitOrder, u)
	}
	for _, id := range sortedKeys(rs.improvements) {
		rs.improvementOrder = append(rs.improvementOrder, rs.improvements[id])
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("ruleset.New: %s", strings.Join(errs, "; "))
	}

	rs.buildTables()
	return rs, nil
}

// buildTables precomputes the carrying, ferry and guarding relations.
func (rs *Ruleset) buildTables() {
	for _, carrier := range rs.unitOrder {
		carried := make(map[string]bool)
		for _, cargo := range rs.unitOrder {
			if !carrier.CarriesClass(cargo.ClassID) {
				continue
			}
			carried[cargo.ID] = true
			if rs.movesOnSea(carrier.Class) && rs.movesOnLand(cargo.Class) &&
				(!rs.fullSeaMover(cargo.Class) || cargo.Fuel > 0) {
				rs.ferry[carrier.ID] = true
			}
			if cargo.Class.CanOccupyCity && cargo.IsMilitary() {
				rs.carriesOccupiers[carrier.ID] = true
			}
		}
		rs.canCarry[carrier.ID] = carried

		for _, charge := range rs.unitOrder {
			if carrier.Fuel > 0 && (charge.Fuel == 0 || charge.Fuel > carrier.Fuel) {
				continue
			}
			if rs.nativeSubset(charge.Class, carrier.Class) {
				rs.potentialCharges[carrier.ID] = append(rs.potentialCharges[carrier.ID], charge)
			}
		}
	}
}

// nativeSubset reports whether every terrain native to sub is native to super.
func (rs *Ruleset) nativeSubset(sub, super *UnitClass) bool {
	for tid := range sub.native {
		if !super.native[tid] {
			return false
		}
	}
	return true
}

func (rs *Ruleset) movesOnSea(c *UnitClass) bool {
	for tid := range c.native {
		if rs.terrains[tid].Oceanic {
			return true
		}
	}
	return false
}

func (rs *Ruleset) movesOnLand(c *UnitClass) bool {
	for tid := range c.native {
		if !rs.terrains[tid].Oceanic {
			return true
		}
	}
	return false
}

func (rs *Ruleset) fullSeaMover(c *UnitClass) bool {
	for _, t := range rs.terrains {
		if t.Oceanic && !c.native[t.ID] {
			return false
		}
	}
	return rs.movesOnSea(c)
}

// IsLandClass reports whether members of c move only on land.
func (rs *Ruleset) IsLandClass(c *UnitClass) bool {
	return rs.movesOnLand(c) && !rs.movesOnSea(c)
}

// IsSeaClass reports whether members of c move only on water.
func (rs *Ruleset) IsSeaClass(c *UnitClass) bool {
	return rs.movesOnSea(c) && !rs.movesOnLand(c)
}

// UnitType returns the unit type with id.
func (rs *Ruleset) UnitType(id string) (*UnitType, bool) {
	u, ok := rs.units[id]
	return u, ok
}

// UnitTypes returns every unit type ordered by id.
func (rs *Ruleset) UnitTypes() []*UnitType {
	return rs.unitOrder
}

// Class returns the unit class with id.
func (rs *Ruleset) Class(id string) (*UnitClass, bool) {
	c, ok := rs.classes[id]
	return c, ok
}

// Terrain returns the terrain with id.
func (rs *Ruleset) Terrain(id string) (*Terrain, bool) {
	t, ok := rs.terrains[id]
	return t, ok
}

// TerrainBySymbol returns the terrain drawn with symbol in scenario maps.
func (rs *Ruleset) TerrainBySymbol(symbol string) (*Terrain, bool) {
	t, ok := rs.terrainBySymbol[symbol]
	return t, ok
}

// Improvement returns the improvement with id.
func (rs *Ruleset) Improvement(id string) (*Improvement, bool) {
	i, ok := rs.improvements[id]
	return i, ok
}

// Improvements returns every improvement ordered by id.
func (rs *Ruleset) Improvements() []*Improvement {
	return rs.improvementOrder
}

// VeteranLevels returns the veteran ladder.
func (rs *Ruleset) VeteranLevels() []VeteranLevel {
	return rs.veterans
}

// VetPowerFactor returns the combat strength percentage for veteran level.
// Out-of-range levels clamp to the ladder ends.
func (rs *Ruleset) VetPowerFactor(level int) int {
	if level < 0 {
		level = 0
	}
	if level >= len(rs.veterans) {
		level = len(rs.veterans) - 1
	}
	return rs.veterans[level].PowerFactor
}

// AttackPower returns the base attack power of t at veteran level vet with
// movesLeft fragments remaining. Units with less than one full move attack
// at proportionally reduced power.
//
// Postcondition: Returns a value >= 0.
func (rs *Ruleset) AttackPower(t *UnitType, vet, movesLeft int) int {
	power := t.Attack * PowerFactor * rs.VetPowerFactor(vet) / 100
	if movesLeft < SingleMove {
		if movesLeft < 0 {
			movesLeft = 0
		}
		power = power * movesLeft / SingleMove
	}
	return power
}

// DefensePower returns the base defense power of t at veteran level vet.
//
// Postcondition: Returns a value >= 0.
func (rs *Ruleset) DefensePower(t *UnitType, vet int) int {
	return t.Defense * PowerFactor * rs.VetPowerFactor(vet) / 100
}

// CanCarry reports whether carrier can transport cargo.
func (rs *Ruleset) CanCarry(carrier, cargo *UnitType) bool {
	return rs.canCarry[carrier.ID][cargo.ID]
}

// IsFerry reports whether t is a sea transport for land units.
func (rs *Ruleset) IsFerry(t *UnitType) bool {
	return rs.ferry[t.ID]
}

// CarriesOccupiers reports whether t can transport units able to conquer cities.
func (rs *Ruleset) CarriesOccupiers(t *UnitType) bool {
	return rs.carriesOccupiers[t.ID]
}

// PotentialCharges returns the unit types a unit of type guard can follow
// everywhere, i.e. those whose native terrain is a subset of the guard's.
func (rs *Ruleset) PotentialCharges(guard *UnitType) []*UnitType {
	return rs.potentialCharges[guard.ID]
}

// CanFollow reports whether follower can escort followee.
func (rs *Ruleset) CanFollow(follower, followee *UnitType) bool {
	for _, c := range rs.potentialCharges[follower.ID] {
		if c == followee {
			return true
		}
	}
	return false
}

// CanTakeOver reports whether units of t may conquer cities.
func (rs *Ruleset) CanTakeOver(t *UnitType) bool {
	return t.Class.CanOccupyCity && t.IsMilitary()
}

// ErrNoRulesetFiles is returned when a ruleset directory holds no YAML documents.
var ErrNoRulesetFiles = errors.New("no ruleset files found")

// Load reads every YAML fragment in dir and builds a Ruleset.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns a Ruleset or a non-nil error.
func Load(dir string) (*Ruleset, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads every YAML fragment in dir of fsys and builds a Ruleset.
//
// Precondition: fsys must be non-nil.
// Postcondition: Returns a Ruleset or a non-nil error.
func LoadFS(fsys fs.FS, dir string) (*Ruleset, error) {
	files, err := yamlFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRulesetFiles, dir)
	}
	fragments := make([]Fragment, 0, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		f, err := ParseFragment(data)
		if err != nil {
			return nil, fmt.Errorf("parsing ruleset file %s: %w", name, err)
		}
		fragments = append(fragments, f)
	}
	return New(fragments...)
}

// ParseFragment decodes one YAML ruleset document.
func ParseFragment(data []byte) (Fragment, error) {
	var f Fragment
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fragment{}, err
	}
	return f, nil
}

func yamlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, path.Join(dir, name))
		}
	}
	return paths, nil
}

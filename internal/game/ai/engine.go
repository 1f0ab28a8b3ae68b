// Package ai is the tactical unit decision engine. Once per player per
// turn it assesses the danger to every city, reserves defenders, and
// drives every autonomous unit through its task state machine.
//
// An Engine is not safe for concurrent use: one player's turn is
// evaluated strictly sequentially and callers serialize turns.
package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Deps are the collaborators an Engine consults.
type Deps struct {
	Paths  PathFinder
	Combat CombatOracle
	Exec   Executor
	// Policy is optional; nil means NoPolicy.
	Policy Policy
	// Diplomats is optional; nil leaves diplomats to the fallback handlers.
	Diplomats DiplomatAdvisor
	// Fuzz is optional; nil disables fuzzy decisions.
	Fuzz Fuzzer
	// Rand is optional; nil makes every coin flip come up false.
	Rand Random
}

// Handler runs the behaviour of one task for a unit. The unit may die
// while the handler runs.
type Handler interface {
	Manage(u *world.Unit)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(u *world.Unit)

// Manage calls f(u).
func (f HandlerFunc) Manage(u *world.Unit) { f(u) }

// Engine holds the per-unit AI state and the per-turn scratch.
type Engine struct {
	w         *world.World
	rules     *ruleset.Ruleset
	paths     PathFinder
	combat    CombatOracle
	exec      Executor
	policy    Policy
	diplomats DiplomatAdvisor
	fuzz      Fuzzer
	rng       Random
	cfg       config.TacticsConfig
	log       *zap.Logger

	store    *Store
	cache    *TurnCache
	handlers map[Task]Handler
	report   *TurnReport
	// spots maps reserved city sites to the founder holding them.
	spots   map[world.Tile]world.UnitID
	posTurn int
}

// New creates an Engine over w.
//
// Precondition: w, deps.Paths, deps.Combat, deps.Exec and logger must be non-nil.
// Postcondition: The engine is registered to hear about unit removals from w.
func New(w *world.World, deps Deps, cfg config.TacticsConfig, logger *zap.Logger) *Engine {
	if w == nil {
		panic("ai.New: world must not be nil")
	}
	if deps.Paths == nil {
		panic("ai.New: path finder must not be nil")
	}
	if deps.Combat == nil {
		panic("ai.New: combat oracle must not be nil")
	}
	if deps.Exec == nil {
		panic("ai.New: executor must not be nil")
	}
	if logger == nil {
		panic("ai.New: logger must not be nil")
	}
	policy := deps.Policy
	if policy == nil {
		policy = NoPolicy{}
	}
	e := &Engine{
		w:         w,
		rules:     w.Rules,
		paths:     deps.Paths,
		combat:    deps.Combat,
		exec:      deps.Exec,
		policy:    policy,
		diplomats: deps.Diplomats,
		fuzz:      deps.Fuzz,
		rng:       deps.Rand,
		cfg:       cfg,
		log:       logger,
		store:     NewStore(),
		cache:     NewTurnCache(),
		spots:     make(map[world.Tile]world.UnitID),
	}
	e.handlers = map[Task]Handler{
		TaskNone:       HandlerFunc(e.militaryAttack),
		TaskAttack:     HandlerFunc(e.militaryAttack),
		TaskDefendHome: HandlerFunc(e.militaryDefend),
		TaskEscort:     HandlerFunc(e.militaryBodyguard),
		TaskExplore:    HandlerFunc(e.militaryExplore),
		TaskRecover:    HandlerFunc(e.manageHitpointRecovery),
		TaskHunter:     HandlerFunc(e.huntAgain),
		TaskTrade:      HandlerFunc(e.manageCaravan),
		TaskWonder:     HandlerFunc(e.manageCaravan),
	}
	w.OnUnitRemoved(func(u *world.Unit) { e.UnitRemoved(u.ID) })
	return e
}

// SetHandler replaces the handler run for task.
//
// Precondition: h must be non-nil.
func (e *Engine) SetHandler(task Task, h Handler) {
	if h == nil {
		panic("ai.Engine.SetHandler: handler must not be nil")
	}
	e.handlers[task] = h
}

// Store returns the per-unit AI state.
func (e *Engine) Store() *Store {
	return e.store
}

// Cache returns the scratch of the current turn.
func (e *Engine) Cache() *TurnCache {
	return e.cache
}

// Data returns the AI state of u.
func (e *Engine) Data(u *world.Unit) *UnitData {
	return e.store.Get(u.ID)
}

// CityData returns the scratch of c for the current turn.
func (e *Engine) CityData(c *world.City) *CityData {
	return e.cache.City(c.ID)
}

// BoatRequest is a unit waiting for a boat that does not exist yet.
type BoatRequest struct {
	Unit world.UnitID
	Tile world.Tile
}

// CityReport is the threat snapshot of one city handed to the production advisor.
type CityReport struct {
	City           world.CityID
	Name           string
	Danger         int
	Urgency        int
	GraveDanger    int
	WallValue      int
	DiplomatThreat bool
	DangerReduced  map[string]int
	BuildingWant   map[string]Want
}

// TurnReport summarizes one player turn.
type TurnReport struct {
	RunID        uuid.UUID
	Player       world.PlayerID
	Turn         int
	Cities       []CityReport
	BoatRequests []BoatRequest
	// Died lists units of any owner removed while the turn ran.
	Died  []world.UnitID
	Tasks map[Task]int
}

// BeginTurn rebuilds the per-turn scratch for player: a fresh TurnCache,
// cleared done flags and hunted bits, and DEFEND_HOME reset to NONE.
//
// Postcondition: Returns ErrUnknownPlayer wrapped when player is not part of the game.
func (e *Engine) BeginTurn(player world.PlayerID) error {
	if _, ok := e.w.Player(player); !ok {
		return fmt.Errorf("ai.BeginTurn: %w: %d", world.ErrUnknownPlayer, player)
	}
	e.cache = NewTurnCache()
	e.pruneDead()
	if e.posTurn != e.w.Turn {
		e.posTurn = e.w.Turn
		for _, u := range e.w.AllUnits() {
			d := e.Data(u)
			tile := u.Tile
			d.PrevPos = d.CurPos
			d.CurPos = &tile
		}
	}
	for _, u := range e.w.AllUnits() {
		delete(e.Data(u).Hunted, player)
	}
	for _, u := range e.w.UnitsOf(player) {
		d := e.Data(u)
		d.Done = false
		if d.Passenger == FerryNone && e.rules.IsFerry(u.Type) {
			d.Passenger = FerryAvailable
		}
		if !d.Task.Valid() {
			e.log.Warn("unknown task, treating as none",
				zap.Int("unit_id", int(u.ID)), zap.Int("task", int(d.Task)))
			d.Task = TaskNone
		}
		if d.Task == TaskDefendHome {
			e.NewTask(u, TaskNone, nil)
		}
		if d.Task == TaskHunter {
			if prey, ok := e.w.Unit(d.Target); ok {
				e.Data(prey).Hunted[player] = true
			}
		}
	}
	for _, c := range e.w.AllCities() {
		e.CityData(c).Worth = e.cityWorth(c)
	}
	return nil
}

// pruneDead forgets units that left the world while the engine was not listening.
func (e *Engine) pruneDead() {
	for _, id := range e.store.IDs() {
		if _, ok := e.w.Unit(id); !ok {
			e.UnitRemoved(id)
		}
	}
}

// cityWorth is the value of c to whoever holds it.
func (e *Engine) cityWorth(c *world.City) int {
	v := c.Surplus.Food*e.cfg.FoodWeighting +
		c.Surplus.Shield*e.cfg.ShieldWeighting +
		c.Surplus.Trade*e.cfg.TradeWeighting +
		c.Size*e.cfg.ShieldWeighting
	for _, id := range c.Buildings() {
		if imp, ok := e.rules.Improvement(id); ok {
			v += imp.BuildCost
		}
	}
	return max(v, 0)
}

// RunTurn evaluates one full turn for player and returns its report.
//
// Precondition: player must be part of the game.
// Postcondition: Returns a report or a non-nil error; ctx cancellation stops between units.
func (e *Engine) RunTurn(ctx context.Context, player world.PlayerID) (*TurnReport, error) {
	if err := e.BeginTurn(player); err != nil {
		return nil, err
	}
	e.report = &TurnReport{
		RunID:  uuid.New(),
		Player: player,
		Turn:   e.w.Turn,
		Tasks:  make(map[Task]int),
	}
	defer func() { e.report = nil }()

	e.AssessDangerPlayer(player)
	e.Airlift(player)
	e.SetDefenders(player)
	if err := e.ManageUnits(ctx, player); err != nil {
		return nil, err
	}

	report := e.report
	report.Cities = e.CityReports(player)
	for _, u := range e.w.UnitsOf(player) {
		d := e.Data(u)
		report.Tasks[d.Task]++
		if d.Ferryboat == FerryWanted {
			report.BoatRequests = append(report.BoatRequests, BoatRequest{Unit: u.ID, Tile: u.Tile})
		}
	}
	e.log.Info("turn evaluated",
		zap.String("run_id", report.RunID.String()),
		zap.Int("player", int(player)),
		zap.Int("turn", report.Turn),
		zap.Int("cities", len(report.Cities)),
		zap.Int("boat_requests", len(report.BoatRequests)),
		zap.Int("died", len(report.Died)),
	)
	return report, nil
}

// CityReports snapshots the threat scratch of every city of player, as
// left by the last assessment this turn.
func (e *Engine) CityReports(player world.PlayerID) []CityReport {
	var out []CityReport
	for _, c := range e.w.CitiesOf(player) {
		d := e.CityData(c)
		out = append(out, CityReport{
			City:           c.ID,
			Name:           c.Name,
			Danger:         d.Danger,
			Urgency:        d.Urgency,
			GraveDanger:    d.GraveDanger,
			WallValue:      d.WallValue,
			DiplomatThreat: d.DiplomatThreat,
			DangerReduced:  d.DangerReduced,
			BuildingWant:   d.BuildingWant,
		})
	}
	return out
}

// ManageUnits runs the task state machine over every unit of player that
// is not carried by one of the player's transports and not yet done.
func (e *Engine) ManageUnits(ctx context.Context, player world.PlayerID) error {
	for _, u := range e.w.UnitsOf(player) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ai.ManageUnits: %w", err)
		}
		live, ok := e.w.Unit(u.ID)
		if !ok {
			continue
		}
		if t, ok := e.w.Unit(live.TransportedBy); ok && t.Owner == player {
			continue
		}
		if e.Data(live).Done {
			continue
		}
		e.ManageUnit(live)
	}
	return nil
}

// UnitRemoved clears every reference to id held by other units: guard
// and charge links, ferry reservations, and hunt targets.
func (e *Engine) UnitRemoved(id world.UnitID) {
	if _, ok := e.store.Lookup(id); !ok {
		return
	}
	if e.report != nil {
		e.report.Died = append(e.report.Died, id)
	}
	for _, otherID := range e.store.IDs() {
		if otherID == id {
			continue
		}
		o, _ := e.store.Lookup(otherID)
		if o.Charge == int(id) {
			o.Charge = BodyguardNone
		}
		if o.Bodyguard == int(id) {
			o.Bodyguard = BodyguardWanted
		}
		if o.Ferryboat == int(id) {
			o.Ferryboat = FerryNone
		}
		if o.Passenger == int(id) {
			o.Passenger = FerryAvailable
		}
		if o.Target == id {
			o.Target = 0
		}
	}
	for tile, founder := range e.spots {
		if founder == id {
			delete(e.spots, tile)
		}
	}
	e.store.Delete(id)
}

// NewTask moves u to task, optionally heading for target. Only NewTask
// mutates the task of a unit.
//
// Postcondition: Leaving HUNTER clears the prey's hunted bit; entering it
// sets the bit. NONE and DEFEND_HOME release the ferry reservation. The
// guard's charge link is always cleared and DEFEND_HOME records the city
// on target as the new charge. NONE cascades to u's bodyguard.
func (e *Engine) NewTask(u *world.Unit, task Task, target *world.Tile) {
	e.newTask(u, task, target, len(e.w.UnitsOf(u.Owner)))
}

func (e *Engine) newTask(u *world.Unit, task Task, target *world.Tile, depth int) {
	d := e.Data(u)
	guard := e.guardOf(u)

	e.log.Debug("task change",
		zap.Int("unit_id", int(u.ID)),
		zap.String("unit_type", u.Type.ID),
		zap.Stringer("from", d.Task),
		zap.Stringer("task", task),
	)

	if task == TaskNone || task == TaskDefendHome {
		e.clearBoat(u)
	}
	if u.Activity == world.ActivityGoto {
		e.setActivity(u, world.ActivityIdle)
	}
	if d.Task == TaskBuildCity && u.GotoTile != nil {
		if e.spots[*u.GotoTile] == u.ID {
			delete(e.spots, *u.GotoTile)
		}
	}
	if d.Task == TaskHunter {
		if prey, ok := e.w.Unit(d.Target); ok {
			delete(e.Data(prey).Hunted, u.Owner)
		}
	}

	e.clearCharge(u)
	if task == TaskDefendHome && target != nil {
		if c := e.w.CityAt(*target); c != nil {
			e.assignGuardCity(c, u)
		}
	}

	d.Task = task
	if target != nil {
		t := *target
		u.GotoTile = &t
	} else {
		u.GotoTile = nil
	}

	if task == TaskNone && guard != nil && depth > 0 {
		e.newTask(guard, TaskNone, nil, depth-1)
	}
	if task == TaskBuildCity && target != nil && e.w.CityAt(*target) == nil {
		e.spots[*target] = u.ID
	}
	if task == TaskHunter {
		if prey, ok := e.w.Unit(d.Target); ok {
			e.Data(prey).Hunted[u.Owner] = true
		}
	}
}

// do hands a to the executor on behalf of u and reports whether u is still alive.
func (e *Engine) do(u *world.Unit, a Action) bool {
	a.Unit = u.ID
	if err := e.exec.Do(a); err != nil {
		e.log.Debug("action refused",
			zap.Int("unit_id", int(u.ID)),
			zap.Stringer("action", a.Kind),
			zap.Stringer("tile", a.Tile),
			zap.Error(err),
		)
	}
	_, alive := e.w.Unit(u.ID)
	return alive
}

func (e *Engine) setActivity(u *world.Unit, act world.Activity) {
	if u.Activity == act {
		return
	}
	e.do(u, Action{Kind: ActActivity, Activity: act})
}

// alive re-resolves u by id.
func (e *Engine) alive(u *world.Unit) bool {
	live, ok := e.w.Unit(u.ID)
	return ok && live == u
}

// dispatch runs the handler for task and reports whether u survived it.
func (e *Engine) dispatch(task Task, u *world.Unit) bool {
	h, ok := e.handlers[task]
	if !ok {
		e.log.Warn("no handler for task", zap.Stringer("task", task), zap.Int("unit_id", int(u.ID)))
		h = e.handlers[TaskNone]
	}
	h.Manage(u)
	return e.alive(u)
}

func (e *Engine) player(id world.PlayerID) *world.Player {
	p, ok := e.w.Player(id)
	if !ok {
		panic(fmt.Sprintf("ai: unit owner %d is not part of the game", id))
	}
	return p
}

// fuzzy flips normal now and then for players with the fuzzy handicap.
func (e *Engine) fuzzy(p *world.Player, normal bool) bool {
	if e.fuzz == nil || !p.HasHandicap(world.HFuzzy) || p.Fuzzy <= 0 {
		return normal
	}
	return e.fuzz.Fuzzy(normal, p.Fuzzy)
}

func (e *Engine) params(owner world.PlayerID, maxTurns int) pathfind.Params {
	return pathfind.Params{MaxTurns: maxTurns, Omniscient: !e.player(owner).HasHandicap(world.HMap)}
}

func (e *Engine) unitMap(u *world.Unit, maxTurns int) *pathfind.Map {
	return e.paths.UnitMap(u, e.params(u.Owner, maxTurns))
}

func (e *Engine) shieldWant(shields int) Want {
	return Want(shields * e.cfg.ShieldWeighting)
}

func (e *Engine) homeCity(u *world.Unit) *world.City {
	c, ok := e.w.City(u.HomeCity)
	if !ok {
		return nil
	}
	return c
}

func (e *Engine) militaryAmortize(u *world.Unit, value Want, delay, buildCost int) Want {
	return MilitaryAmortize(e.w, u.Owner, e.homeCity(u), value, delay, buildCost, e.cfg.Mort)
}

// unitFields are the log fields describing u.
func unitFields(u *world.Unit, fields ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.Int("unit_id", int(u.ID)),
		zap.String("unit_type", u.Type.ID),
		zap.Stringer("tile", u.Tile),
	}, fields...)
}

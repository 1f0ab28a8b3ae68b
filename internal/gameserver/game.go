// Package gameserver drives the decision engine turn by turn and serves
// its results to production advisors over gRPC.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/observability"
)

// ErrNoReport is returned when a player has not been evaluated yet.
var ErrNoReport = errors.New("no turn report yet")

// StateStore persists the engine's per-unit state between runs.
type StateStore interface {
	Save(ctx context.Context, game string, rows []ai.PersistedUnit) error
	Load(ctx context.Context, game string) ([]ai.PersistedUnit, error)
}

// ThreatRecorder stores city threat snapshots.
type ThreatRecorder interface {
	Record(ctx context.Context, game string, report *ai.TurnReport) (int, error)
}

// Narrator turns a report into prose for operators.
type Narrator interface {
	Narrate(ctx context.Context, report *ai.TurnReport) (string, error)
}

// TurnStarter prepares a player's units for a new turn: healing, moves
// and fortification. The reference executor implements it.
type TurnStarter interface {
	StartTurn(player world.PlayerID)
}

// Game owns one running world and the engine evaluating it. All access
// to the world goes through Game so that turns and advisor queries never
// overlap.
type Game struct {
	name   string
	w      *world.World
	eng    *ai.Engine
	turns  TurnStarter
	logger *zap.Logger

	states   StateStore
	threats  ThreatRecorder
	narrator Narrator

	mu      sync.Mutex
	reports map[world.PlayerID]*ai.TurnReport
}

// GameOption configures optional Game collaborators.
type GameOption func(*Game)

// WithStateStore persists unit state at the end of every turn.
func WithStateStore(s StateStore) GameOption { return func(g *Game) { g.states = s } }

// WithThreatRecorder records city threats after every player turn.
func WithThreatRecorder(r ThreatRecorder) GameOption { return func(g *Game) { g.threats = r } }

// WithNarrator logs a prose summary of every player turn.
func WithNarrator(n Narrator) GameOption { return func(g *Game) { g.narrator = n } }

// NewGame creates a Game named name over w.
//
// Precondition: w, eng, turns and logger must be non-nil; name must be non-empty.
func NewGame(name string, w *world.World, eng *ai.Engine, turns TurnStarter, logger *zap.Logger, opts ...GameOption) *Game {
	if name == "" {
		panic("gameserver.NewGame: name must not be empty")
	}
	if w == nil || eng == nil || turns == nil || logger == nil {
		panic("gameserver.NewGame: world, engine, turn starter and logger must not be nil")
	}
	g := &Game{
		name:    name,
		w:       w,
		eng:     eng,
		turns:   turns,
		logger:  logger,
		reports: make(map[world.PlayerID]*ai.TurnReport),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the game name used as the persistence key.
func (g *Game) Name() string { return g.name }

// Turn returns the current turn number.
func (g *Game) Turn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.w.Turn
}

// AIPlayers returns the ids of engine-controlled players, ascending.
func (g *Game) AIPlayers() []world.PlayerID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []world.PlayerID
	for _, p := range g.w.Players() {
		if p.AI {
			out = append(out, p.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Restore loads persisted unit state into the engine. Rows naming units
// that no longer exist are ignored.
//
// Postcondition: Returns the number of rows restored.
func (g *Game) Restore(ctx context.Context) (int, error) {
	if g.states == nil {
		return 0, nil
	}
	rows, err := g.states.Load(ctx, g.name)
	if err != nil {
		return 0, fmt.Errorf("gameserver.Game.Restore: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	live := rows[:0]
	for _, r := range rows {
		if _, ok := g.w.Unit(r.UnitID); ok {
			live = append(live, r)
		}
	}
	g.eng.Store().Restore(live)
	return len(live), nil
}

// PlayTurn starts player's turn and runs the engine over its units.
// Threat recording and narration failures are logged, not returned.
//
// Postcondition: On success the report is kept for advisor queries.
func (g *Game) PlayTurn(ctx context.Context, player world.PlayerID) (*ai.TurnReport, error) {
	g.mu.Lock()
	if _, ok := g.w.Player(player); !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("gameserver.Game.PlayTurn: %w: %d", world.ErrUnknownPlayer, player)
	}
	g.turns.StartTurn(player)
	report, err := g.eng.RunTurn(ctx, player)
	if err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("gameserver.Game.PlayTurn: %w", err)
	}
	g.reports[player] = report
	g.mu.Unlock()

	log := observability.ForTurn(g.logger, int(player), report.Turn)
	if g.threats != nil {
		if _, err := g.threats.Record(ctx, g.name, report); err != nil {
			log.Warn("recording city threats", zap.Error(err))
		}
	}
	if g.narrator != nil {
		text, err := g.narrator.Narrate(ctx, report)
		if err != nil {
			log.Warn("narrating turn", zap.Error(err))
		} else {
			log.Info("turn narrative", zap.String("text", text))
		}
	}
	return report, nil
}

// EndTurn persists unit state and advances the turn counter.
//
// Postcondition: The turn advances even when persisting fails.
func (g *Game) EndTurn(ctx context.Context) error {
	g.mu.Lock()
	rows := g.eng.Store().Snapshot()
	turn := g.w.Turn
	g.w.Turn++
	g.mu.Unlock()

	g.logger.Info("turn ended", zap.Int("turn", turn), zap.Int("tracked_units", len(rows)))
	if g.states == nil {
		return nil
	}
	if err := g.states.Save(ctx, g.name, rows); err != nil {
		return fmt.Errorf("gameserver.Game.EndTurn: %w", err)
	}
	return nil
}

// Report returns the latest report of player.
func (g *Game) Report(player world.PlayerID) (*ai.TurnReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.reports[player]
	if !ok {
		return nil, fmt.Errorf("gameserver.Game.Report: %w: player %d", ErrNoReport, player)
	}
	return r, nil
}

// UnitTask is the engine's current view of one unit.
type UnitTask struct {
	Unit      world.UnitID
	Type      string
	Tile      world.Tile
	Task      ai.Task
	Charge    int
	Bodyguard int
	Ferryboat int
}

// UnitTasks lists the tasks of player's units, ordered by unit id.
func (g *Game) UnitTasks(player world.PlayerID) ([]UnitTask, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.w.Player(player); !ok {
		return nil, fmt.Errorf("gameserver.Game.UnitTasks: %w: %d", world.ErrUnknownPlayer, player)
	}
	units := g.w.UnitsOf(player)
	out := make([]UnitTask, 0, len(units))
	for _, u := range units {
		d, ok := g.eng.Store().Lookup(u.ID)
		task := UnitTask{Unit: u.ID, Type: u.Type.ID, Tile: u.Tile}
		if ok {
			task.Task = d.Task
			task.Charge = d.Charge
			task.Bodyguard = d.Bodyguard
			task.Ferryboat = d.Ferryboat
		}
		out = append(out, task)
	}
	return out, nil
}

// Reservation is a building the production advisor should queue.
type Reservation struct {
	City        world.CityID
	Improvement string
	Want        ai.Want
}

// ReserveImprovement picks the defensive building city wants most,
// according to player's latest report.
//
// Postcondition: Returns ErrNoReport when player has no report, and a
// zero Improvement when the city wants nothing.
func (g *Game) ReserveImprovement(player world.PlayerID, city world.CityID) (Reservation, error) {
	report, err := g.Report(player)
	if err != nil {
		return Reservation{}, err
	}
	res := Reservation{City: city}
	for _, c := range report.Cities {
		if c.City != city {
			continue
		}
		ids := make([]string, 0, len(c.BuildingWant))
		for id := range c.BuildingWant {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if w := c.BuildingWant[id]; w > res.Want {
				res.Improvement, res.Want = id, w
			}
		}
		return res, nil
	}
	return Reservation{}, fmt.Errorf("gameserver.Game.ReserveImprovement: city %d is not in player %d's report", city, player)
}

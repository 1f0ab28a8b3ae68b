package ai_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/sim"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/testutil"
)

// harness is one scenario wired to an engine and the reference executor.
type harness struct {
	sc   *world.Scenario
	w    *world.World
	eng  *ai.Engine
	exec *sim.Executor
}

func newHarness(t testing.TB, doc string) *harness {
	t.Helper()
	return newHarnessFor(t, testutil.Scenario(t, doc), config.DefaultTactics())
}

func newHarnessFor(t testing.TB, sc *world.Scenario, cfg config.TacticsConfig) *harness {
	t.Helper()
	return newHarnessLogged(sc, cfg, zaptest.NewLogger(t))
}

// newObservedHarness records every engine log entry at debug level and above.
func newObservedHarness(t testing.TB, doc string) (*harness, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return newHarnessLogged(testutil.Scenario(t, doc), config.DefaultTactics(), zap.New(core)), logs
}

func newHarnessLogged(sc *world.Scenario, cfg config.TacticsConfig, logger *zap.Logger) *harness {
	w := sc.World
	oracle := combat.NewOracle(w)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(42), logger)
	exec := sim.NewExecutor(w, oracle, roller, cfg.OccupyChance, logger)
	eng := ai.New(w, ai.Deps{
		Paths:  pathfind.NewFinder(w),
		Combat: oracle,
		Exec:   exec,
		Rand:   dice.NewSeededSource(43),
	}, cfg, logger)
	return &harness{sc: sc, w: w, eng: eng, exec: exec}
}

func (h *harness) unit(t testing.TB, label string) *world.Unit {
	t.Helper()
	return testutil.Unit(t, h.sc, label)
}

func (h *harness) alive(label string) bool {
	id, ok := h.sc.Labels[label]
	if !ok {
		return false
	}
	_, alive := h.w.Unit(id)
	return alive
}

func (h *harness) city(t testing.TB, name string) *world.City {
	t.Helper()
	for _, c := range h.w.AllCities() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("unknown city %q", name)
	return nil
}

// checkGuardLinks asserts every guard link is mirrored by its charge.
func (h *harness) checkGuardLinks(t testing.TB) {
	t.Helper()
	for _, id := range h.eng.Store().IDs() {
		d, _ := h.eng.Store().Lookup(id)
		if d.Bodyguard > 0 {
			guard, ok := h.w.Unit(world.UnitID(d.Bodyguard))
			if !ok {
				t.Errorf("unit %d names dead guard %d", id, d.Bodyguard)
				continue
			}
			if gd := h.eng.Data(guard); gd.Charge != int(id) {
				t.Errorf("guard %d of unit %d guards %d", guard.ID, id, gd.Charge)
			}
		}
		if d.Charge > 0 {
			if charge, ok := h.w.Unit(world.UnitID(d.Charge)); ok {
				if cd := h.eng.Data(charge); cd.Bodyguard != int(id) {
					t.Errorf("charge %d of guard %d names guard %d", charge.ID, id, cd.Bodyguard)
				}
			}
		}
	}
}

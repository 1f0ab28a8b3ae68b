package gameserver

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/pathfind"
	"github.com/cory-johannsen/tactics/internal/game/sim"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Rig is an engine wired to the reference executor over one world.
type Rig struct {
	World  *world.World
	Engine *ai.Engine
	Exec   *sim.Executor
	Oracle *combat.Oracle
	Roller *dice.Roller
}

// NewRig assembles the engine and its collaborators over w. A zero seed
// draws dice from the crypto source. policy may be nil.
//
// Precondition: w and logger must be non-nil.
func NewRig(w *world.World, tactics config.TacticsConfig, seed int64, policy ai.Policy, logger *zap.Logger) *Rig {
	if w == nil || logger == nil {
		panic("gameserver.NewRig: world and logger must not be nil")
	}
	var src dice.Source
	if seed == 0 {
		src = dice.NewCryptoSource()
	} else {
		src = dice.NewSeededSource(seed)
	}
	roller := dice.NewLoggedRoller(src, logger.Named("dice"))
	oracle := combat.NewOracle(w)
	exec := sim.NewExecutor(w, oracle, roller, tactics.OccupyChance, logger.Named("sim"))
	eng := ai.New(w, ai.Deps{
		Paths:  pathfind.NewFinder(w),
		Combat: oracle,
		Exec:   exec,
		Policy: policy,
		Fuzz:   roller,
		Rand:   src,
	}, tactics, logger.Named("ai"))
	return &Rig{World: w, Engine: eng, Exec: exec, Oracle: oracle, Roller: roller}
}

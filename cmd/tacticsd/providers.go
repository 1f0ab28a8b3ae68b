package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/gameserver"
	"github.com/cory-johannsen/tactics/internal/observability"
	"github.com/cory-johannsen/tactics/internal/report"
	"github.com/cory-johannsen/tactics/internal/scripting"
	"github.com/cory-johannsen/tactics/internal/server"
	"github.com/cory-johannsen/tactics/internal/storage/postgres"
)

// ConfigPath is the configuration file the daemon reads.
type ConfigPath string

// App is the assembled daemon.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Game      *gameserver.Game
	Lifecycle *server.Lifecycle
}

func provideConfig(path ConfigPath) (config.Config, error) {
	return config.Load(string(path))
}

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideRuleset(cfg config.Config, logger *zap.Logger) (*ruleset.Ruleset, error) {
	start := time.Now()
	rules, err := ruleset.Load(cfg.Engine.RulesetDir)
	if err != nil {
		return nil, fmt.Errorf("loading ruleset: %w", err)
	}
	logger.Info("ruleset loaded",
		zap.String("dir", cfg.Engine.RulesetDir),
		zap.Int("unit_types", len(rules.UnitTypes())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rules, nil
}

func provideScenario(cfg config.Config, rules *ruleset.Ruleset, logger *zap.Logger) (*world.Scenario, error) {
	sc, err := world.LoadScenarioFromFile(cfg.Engine.ScenarioPath, rules)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	logger.Info("scenario loaded",
		zap.String("name", sc.Name),
		zap.Int("players", len(sc.World.Players())),
		zap.Int("units", len(sc.World.AllUnits())),
		zap.Int("cities", len(sc.World.AllCities())),
	)
	return sc, nil
}

// providePolicy loads the Lua policy scripts, or returns a nil Policy
// when scripting is disabled.
func providePolicy(cfg config.Config, sc *world.Scenario, logger *zap.Logger) (ai.Policy, func(), error) {
	if cfg.Scripting.PolicyDir == "" {
		return nil, func() {}, nil
	}
	log := observability.Component(logger, "scripting")
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), log), log)
	if err := mgr.LoadPolicyDir(cfg.Scripting.PolicyDir, cfg.Scripting.InstructionLimit); err != nil {
		mgr.Close()
		return nil, nil, fmt.Errorf("loading policy scripts: %w", err)
	}
	log.Info("policy scripts loaded", zap.String("dir", cfg.Scripting.PolicyDir))
	return scripting.NewPolicy(mgr, sc.World), mgr.Close, nil
}

func provideRig(cfg config.Config, sc *world.Scenario, policy ai.Policy, logger *zap.Logger) *gameserver.Rig {
	return gameserver.NewRig(sc.World, cfg.Tactics, cfg.Engine.Seed, policy, observability.Component(logger, "engine"))
}

// providePool connects to PostgreSQL when state persistence is enabled;
// otherwise it returns nil.
func providePool(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.Pool, error) {
	if !cfg.Engine.PersistState {
		return nil, nil
	}
	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pool, nil
}

func provideNarrator(cfg config.Config, logger *zap.Logger) *report.Narrator {
	return report.NewNarrator(cfg.Narrator, observability.Component(logger, "narrator"))
}

func provideGame(ctx context.Context, cfg config.Config, sc *world.Scenario, rig *gameserver.Rig, pool *postgres.Pool, narrator *report.Narrator, logger *zap.Logger) (*gameserver.Game, error) {
	var opts []gameserver.GameOption
	if pool != nil {
		opts = append(opts,
			gameserver.WithStateStore(pool.UnitStates(observability.Component(logger, "storage"))),
			gameserver.WithThreatRecorder(pool.Threats()),
		)
	}
	if cfg.Narrator.Enabled {
		opts = append(opts, gameserver.WithNarrator(narrator))
	}
	game := gameserver.NewGame(sc.Name, sc.World, rig.Engine, rig.Exec, observability.Component(logger, "game"), opts...)
	n, err := game.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		logger.Info("unit state restored", zap.Int("units", n))
	}
	return game, nil
}

func provideLifecycle(cfg config.Config, game *gameserver.Game, pool *postgres.Pool, logger *zap.Logger) *server.Lifecycle {
	lc := server.NewLifecycle(observability.Component(logger, "lifecycle"), 10*time.Second)
	lc.Add("turns", gameserver.NewDriver(cfg.Engine, game, observability.Component(logger, "turns")))
	if cfg.Advisor.Enabled {
		advLog := observability.Component(logger, "advisor")
		lc.Add("advisor", gameserver.NewGRPCService(cfg.Advisor.Addr(), gameserver.NewAdvisorService(game, advLog), advLog))
	}
	if pool != nil {
		lc.Add("postgres", server.ServiceFunc(func(ctx context.Context) error {
			return pool.Watch(ctx, 30*time.Second, logger)
		}))
	}
	return lc
}

func provideApp(cfg config.Config, logger *zap.Logger, game *gameserver.Game, lc *server.Lifecycle) *App {
	return &App{Config: cfg, Logger: logger, Game: game, Lifecycle: lc}
}

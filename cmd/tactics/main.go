// Package main is the tactics command-line tool: it plays scenarios
// offline and prints what the engine thinks of them.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/content"
	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/ruleset"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/gameserver"
	"github.com/cory-johannsen/tactics/internal/observability"
	"github.com/cory-johannsen/tactics/internal/scripting"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	alertColor = color.New(color.FgRed, color.Bold)
	infoColor  = color.New(color.FgYellow)
)

// options are the flags shared by every subcommand.
type options struct {
	rulesetDir string
	scenario   string
	policyDir  string
	seed       int64
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "tactics",
		Short: "Inspect the tactical unit engine on a scenario",
		Long: `tactics loads a scenario and runs the tactical engine over it offline:
simulate plays whole turns, threat shows how endangered each city is and
targets lists what every military unit would attack.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.rulesetDir, "ruleset", "", "ruleset directory; empty uses the built-in classic ruleset")
	root.PersistentFlags().StringVarP(&opts.scenario, "scenario", "s", "skirmish", "built-in scenario name or path to a scenario YAML file")
	root.PersistentFlags().StringVar(&opts.policyDir, "policy", "", "directory of Lua policy scripts; empty disables scripting")
	root.PersistentFlags().Int64Var(&opts.seed, "seed", 1, "dice seed; 0 draws from the crypto source")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "log level: debug, info, warn or error")

	root.AddCommand(newSimulateCmd(opts), newThreatCmd(opts), newTargetsCmd(opts))
	return root
}

// session is a scenario loaded and wired to the engine.
type session struct {
	sc     *world.Scenario
	rig    *gameserver.Rig
	game   *gameserver.Game
	logger *zap.Logger
	close  func()
}

func (o *options) open() (*session, error) {
	logger, err := observability.NewLogger(config.LoggingConfig{Level: o.logLevel, Format: "console"})
	if err != nil {
		return nil, err
	}
	rules, err := o.loadRuleset()
	if err != nil {
		return nil, err
	}
	sc, err := o.loadScenario(rules)
	if err != nil {
		return nil, err
	}
	s := &session{sc: sc, logger: logger, close: func() { _ = logger.Sync() }}

	var policy ai.Policy
	if o.policyDir != "" {
		mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger), logger)
		if err := mgr.LoadPolicyDir(o.policyDir, config.DefaultInstructionLimit); err != nil {
			mgr.Close()
			return nil, fmt.Errorf("loading policy scripts: %w", err)
		}
		policy = scripting.NewPolicy(mgr, sc.World)
		s.close = func() {
			mgr.Close()
			_ = logger.Sync()
		}
	}
	s.rig = gameserver.NewRig(sc.World, config.DefaultTactics(), o.seed, policy, logger)
	s.game = gameserver.NewGame(sc.Name, sc.World, s.rig.Engine, s.rig.Exec, logger)
	return s, nil
}

func (o *options) loadRuleset() (*ruleset.Ruleset, error) {
	if o.rulesetDir == "" {
		return ruleset.LoadFS(content.FS, content.ClassicRulesetDir)
	}
	return ruleset.Load(o.rulesetDir)
}

func (o *options) loadScenario(rules *ruleset.Ruleset) (*world.Scenario, error) {
	if !strings.ContainsRune(o.scenario, filepath.Separator) && filepath.Ext(o.scenario) == "" {
		data, err := content.FS.ReadFile("scenarios/" + o.scenario + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("unknown built-in scenario %q", o.scenario)
		}
		return world.LoadScenarioFromBytes(data, rules)
	}
	return world.LoadScenarioFromFile(o.scenario, rules)
}

// playerArg resolves a player given by id or name.
func playerArg(w *world.World, arg string) (world.PlayerID, error) {
	for _, p := range w.Players() {
		if p.Name == arg || fmt.Sprint(p.ID) == arg {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", world.ErrUnknownPlayer, arg)
}

func playerName(w *world.World, id world.PlayerID) string {
	if p, ok := w.Player(id); ok {
		return p.Name
	}
	return fmt.Sprint(id)
}

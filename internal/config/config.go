// Package config provides Viper-based configuration loading for the tactics engine.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EngineConfig holds top-level turn loop settings.
type EngineConfig struct {
	// Mode selects how turns are driven: "ticker" runs every player on one
	// ticker, "workers" gives each player its own goroutine.
	Mode string `mapstructure:"mode"`
	// TurnInterval is the wall-clock delay between simulated turns.
	TurnInterval time.Duration `mapstructure:"turn_interval"`
	// MaxTurns stops the daemon after this many turns; 0 runs until shutdown.
	MaxTurns int `mapstructure:"max_turns"`
	// RulesetDir is the directory holding unit class, unit type, terrain and
	// improvement YAML files.
	RulesetDir string `mapstructure:"ruleset_dir"`
	// ScenarioPath is the scenario YAML file describing the initial world.
	ScenarioPath string `mapstructure:"scenario_path"`
	// PersistState enables writing unit AI state and city threats to PostgreSQL.
	PersistState bool `mapstructure:"persist_state"`
	// Seed seeds the simulation dice; 0 selects the crypto source.
	Seed int64 `mapstructure:"seed"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TacticsConfig holds the tunable weights and thresholds of the unit
// decision engine. Only the relative order of magnitude of these values
// matters for play quality.
type TacticsConfig struct {
	// Mort is the amortization base: a want delayed one turn keeps (Mort-1)/Mort of its value.
	Mort int `mapstructure:"mort"`
	// ShieldWeighting converts shields into want.
	ShieldWeighting int `mapstructure:"shield_weighting"`
	// TradeWeighting converts trade into want.
	TradeWeighting int `mapstructure:"trade_weighting"`
	// FoodWeighting converts food into want.
	FoodWeighting int `mapstructure:"food_weighting"`
	// RecoverHPFraction sends a unit to RECOVER below this share of its hit points.
	RecoverHPFraction float64 `mapstructure:"recover_hp_fraction"`
	// RetreatHPFraction sends an attacker home below this share of its hit points.
	RetreatHPFraction float64 `mapstructure:"retreat_hp_fraction"`
	// OccupyChance is the percent chance a victorious unit moves into the defeated tile.
	OccupyChance int `mapstructure:"occupy_chance"`
	// MaxTargetMoveTime discards targets further away than this many turns.
	MaxTargetMoveTime int `mapstructure:"max_target_move_time"`
	// AttackLoopCap bounds the target search iterations of one attack handler call.
	AttackLoopCap int `mapstructure:"attack_loop_cap"`
	// DangerHorizon is the number of turns ahead the threat assessor looks.
	DangerHorizon int `mapstructure:"danger_horizon"`
	// DangerHorizonLimited replaces DangerHorizon under the limited assessment handicap.
	DangerHorizonLimited int `mapstructure:"danger_horizon_limited"`
	// DangerHorizonCPUHog replaces DangerHorizon for the highest skill level.
	DangerHorizonCPUHog int `mapstructure:"danger_horizon_cpuhog"`
	// ChargeSearchTurns bounds how far, in turns of the guard's movement, a charge may be.
	ChargeSearchTurns int `mapstructure:"charge_search_turns"`
	// HunterRangeTurns bounds how far, in turns, a hunter chases prey.
	HunterRangeTurns int `mapstructure:"hunter_range_turns"`
}

// DefaultInstructionLimit is the stock per-hook Lua instruction budget.
const DefaultInstructionLimit = 100000

// ScriptingConfig holds the optional Lua policy script settings.
type ScriptingConfig struct {
	// PolicyDir holds per-player policy scripts; empty disables scripting.
	PolicyDir string `mapstructure:"policy_dir"`
	// InstructionLimit bounds the instructions one hook call may execute.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// AdvisorConfig holds the gRPC advisor service settings.
type AdvisorConfig struct {
	// Enabled starts the gRPC advisor service.
	Enabled bool `mapstructure:"enabled"`
	// GRPCHost is the bind address for the advisor service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the advisor service.
	GRPCPort int `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (a AdvisorConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.GRPCHost, a.GRPCPort)
}

// NarratorConfig holds the optional turn report summarizer settings.
type NarratorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// Config is the top-level application configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tactics   TacticsConfig   `mapstructure:"tactics"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Advisor   AdvisorConfig   `mapstructure:"advisor"`
	Narrator  NarratorConfig  `mapstructure:"narrator"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Tactics.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateScripting(c.Scripting); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAdvisor(c.Advisor); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateNarrator(c.Narrator); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	validModes := map[string]bool{"ticker": true, "workers": true}
	if !validModes[e.Mode] {
		errs = append(errs, fmt.Sprintf("engine.mode must be one of [ticker, workers], got %q", e.Mode))
	}
	if e.TurnInterval <= 0 {
		errs = append(errs, "engine.turn_interval must be positive")
	}
	if e.MaxTurns < 0 {
		errs = append(errs, fmt.Sprintf("engine.max_turns must be >= 0, got %d", e.MaxTurns))
	}
	if e.RulesetDir == "" {
		errs = append(errs, "engine.ruleset_dir must not be empty")
	}
	if e.ScenarioPath == "" {
		errs = append(errs, "engine.scenario_path must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Validate checks the tactics tunables.
//
// Postcondition: Returns nil if every weight and threshold is usable, or an
// error describing all violations.
func (t TacticsConfig) Validate() error {
	var errs []string
	if t.Mort < 2 {
		errs = append(errs, fmt.Sprintf("tactics.mort must be >= 2, got %d", t.Mort))
	}
	if t.ShieldWeighting < 1 {
		errs = append(errs, fmt.Sprintf("tactics.shield_weighting must be >= 1, got %d", t.ShieldWeighting))
	}
	if t.TradeWeighting < 0 {
		errs = append(errs, fmt.Sprintf("tactics.trade_weighting must be >= 0, got %d", t.TradeWeighting))
	}
	if t.FoodWeighting < 0 {
		errs = append(errs, fmt.Sprintf("tactics.food_weighting must be >= 0, got %d", t.FoodWeighting))
	}
	if t.RecoverHPFraction <= 0 || t.RecoverHPFraction >= 1 {
		errs = append(errs, fmt.Sprintf("tactics.recover_hp_fraction must be in (0, 1), got %v", t.RecoverHPFraction))
	}
	if t.RetreatHPFraction <= 0 || t.RetreatHPFraction >= 1 {
		errs = append(errs, fmt.Sprintf("tactics.retreat_hp_fraction must be in (0, 1), got %v", t.RetreatHPFraction))
	}
	if t.RecoverHPFraction > t.RetreatHPFraction {
		errs = append(errs, "tactics.recover_hp_fraction must not exceed tactics.retreat_hp_fraction")
	}
	if t.OccupyChance < 0 || t.OccupyChance > 100 {
		errs = append(errs, fmt.Sprintf("tactics.occupy_chance must be 0-100, got %d", t.OccupyChance))
	}
	if t.MaxTargetMoveTime < 1 {
		errs = append(errs, fmt.Sprintf("tactics.max_target_move_time must be >= 1, got %d", t.MaxTargetMoveTime))
	}
	if t.AttackLoopCap < 1 {
		errs = append(errs, fmt.Sprintf("tactics.attack_loop_cap must be >= 1, got %d", t.AttackLoopCap))
	}
	for name, v := range map[string]int{
		"danger_horizon":         t.DangerHorizon,
		"danger_horizon_limited": t.DangerHorizonLimited,
		"danger_horizon_cpuhog":  t.DangerHorizonCPUHog,
		"charge_search_turns":    t.ChargeSearchTurns,
		"hunter_range_turns":     t.HunterRangeTurns,
	} {
		if v < 1 {
			errs = append(errs, fmt.Sprintf("tactics.%s must be >= 1, got %d", name, v))
		}
	}
	if len(errs) > 0 {
		// map iteration order is random; keep messages stable
		sort.Strings(errs)
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateAdvisor(a AdvisorConfig) error {
	var errs []string
	if a.GRPCHost == "" {
		errs = append(errs, "advisor.grpc_host must not be empty")
	}
	if a.GRPCPort < 1 || a.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("advisor.grpc_port must be 1-65535, got %d", a.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNarrator(n NarratorConfig) error {
	if !n.Enabled {
		return nil
	}
	var errs []string
	if n.Model == "" {
		errs = append(errs, "narrator.model must not be empty when enabled")
	}
	if n.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("narrator.max_tokens must be >= 1, got %d", n.MaxTokens))
	}
	if n.APIKeyEnv == "" {
		errs = append(errs, "narrator.api_key_env must not be empty when enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with TACTICS_ prefix
	v.SetEnvPrefix("TACTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultTactics returns the stock tunables.
//
// Postcondition: The returned value passes TacticsConfig.Validate.
func DefaultTactics() TacticsConfig {
	return TacticsConfig{
		Mort:                 24,
		ShieldWeighting:      17,
		TradeWeighting:       12,
		FoodWeighting:        19,
		RecoverHPFraction:    0.25,
		RetreatHPFraction:    0.5,
		OccupyChance:         0,
		MaxTargetMoveTime:    10,
		AttackLoopCap:        10,
		DangerHorizon:        3,
		DangerHorizonLimited: 2,
		DangerHorizonCPUHog:  6,
		ChargeSearchTurns:    3,
		HunterRangeTurns:     6,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.mode", "ticker")
	v.SetDefault("engine.turn_interval", "2s")
	v.SetDefault("engine.max_turns", 0)
	v.SetDefault("engine.ruleset_dir", "content/rulesets/classic")
	v.SetDefault("engine.scenario_path", "content/scenarios/skirmish.yaml")
	v.SetDefault("engine.persist_state", false)
	v.SetDefault("engine.seed", 0)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tactics")
	v.SetDefault("database.password", "tactics")
	v.SetDefault("database.name", "tactics")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	d := DefaultTactics()
	v.SetDefault("tactics.mort", d.Mort)
	v.SetDefault("tactics.shield_weighting", d.ShieldWeighting)
	v.SetDefault("tactics.trade_weighting", d.TradeWeighting)
	v.SetDefault("tactics.food_weighting", d.FoodWeighting)
	v.SetDefault("tactics.recover_hp_fraction", d.RecoverHPFraction)
	v.SetDefault("tactics.retreat_hp_fraction", d.RetreatHPFraction)
	v.SetDefault("tactics.occupy_chance", d.OccupyChance)
	v.SetDefault("tactics.max_target_move_time", d.MaxTargetMoveTime)
	v.SetDefault("tactics.attack_loop_cap", d.AttackLoopCap)
	v.SetDefault("tactics.danger_horizon", d.DangerHorizon)
	v.SetDefault("tactics.danger_horizon_limited", d.DangerHorizonLimited)
	v.SetDefault("tactics.danger_horizon_cpuhog", d.DangerHorizonCPUHog)
	v.SetDefault("tactics.charge_search_turns", d.ChargeSearchTurns)
	v.SetDefault("tactics.hunter_range_turns", d.HunterRangeTurns)

	v.SetDefault("scripting.policy_dir", "")
	v.SetDefault("scripting.instruction_limit", DefaultInstructionLimit)

	v.SetDefault("advisor.enabled", true)
	v.SetDefault("advisor.grpc_host", "127.0.0.1")
	v.SetDefault("advisor.grpc_port", 50061)

	v.SetDefault("narrator.enabled", false)
	v.SetDefault("narrator.model", "claude-sonnet-4-5")
	v.SetDefault("narrator.max_tokens", 512)
	v.SetDefault("narrator.api_key_env", "ANTHROPIC_API_KEY")
}

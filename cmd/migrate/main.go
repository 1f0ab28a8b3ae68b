// Package main applies the embedded schema migrations to the configured database.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/observability"
	"github.com/cory-johannsen/tactics/migrations"
)

func main() {
	if err := newMigrateCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newMigrateCmd() *cobra.Command {
	var (
		configPath string
		steps      int
	)
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Move the engine schema up or down",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/dev.yaml", "path to configuration file")
	root.PersistentFlags().IntVar(&steps, "steps", 0, "number of migrations to apply; 0 applies all")

	for _, direction := range []string{"up", "down"} {
		root.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Apply migrations %s", direction),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(configPath, direction, steps)
			},
		})
	}
	return root
}

func run(configPath, direction string, steps int) error {
	start := time.Now()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = observability.Component(logger, "migrate")

	m, err := migrations.New(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer m.Close()

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if err := migrations.Apply(m, direction, steps); err != nil {
		return fmt.Errorf("migrating %s: %w", direction, err)
	}
	after, dirty, _ := m.Version()

	logger.Info("schema migrated",
		zap.String("direction", direction),
		zap.Uint("from", before),
		zap.Uint("to", after),
		zap.Bool("dirty", dirty),
		zap.Bool("changed", before != after),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

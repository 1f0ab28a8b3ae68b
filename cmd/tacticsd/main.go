// Package main runs the tactics daemon: it loads a scenario, plays the
// AI players' turns on a ticker and serves the results to advisors over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
)

func main() {
	start := time.Now()
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, ConfigPath(*configPath))
	if err != nil {
		log.Fatalf("initializing tacticsd: %v", err)
	}
	defer cleanup()

	app.Logger.Info("tacticsd initialized",
		zap.String("mode", app.Config.Engine.Mode),
		zap.String("game", app.Game.Name()),
		zap.Int("turn", app.Game.Turn()),
		zap.Bool("advisor", app.Config.Advisor.Enabled),
		zap.Bool("persist_state", app.Config.Engine.PersistState),
		zap.Duration("startup", time.Since(start)),
	)

	if err := app.Lifecycle.Run(ctx); err != nil {
		app.Logger.Error("tacticsd stopped with error", zap.Error(err))
		cleanup()
		log.Fatalf("tacticsd: %v", err)
	}
}

package gameserver

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/server"
)

// Driver plays a Game's turns on a TurnTicker, either calling the engine
// directly ("ticker" mode) or through one PlayerWorker per player
// ("workers" mode).
type Driver struct {
	ticker *TurnTicker
	pool   *WorkerPool
	logger *zap.Logger
}

// NewDriver prepares the turn loop of game as described by cfg.
//
// Precondition: cfg must have passed validation; game and logger must be non-nil.
func NewDriver(cfg config.EngineConfig, game *Game, logger *zap.Logger) *Driver {
	d := &Driver{
		ticker: NewTurnTicker(cfg.TurnInterval, cfg.MaxTurns),
		logger: logger,
	}
	if cfg.Mode == "workers" {
		d.pool = NewWorkerPool(game, logger)
		d.ticker.OnTurnEnd(func(ctx context.Context, turn int) {
			if err := d.pool.Turn(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("turn incomplete", zap.Int("turn", turn), zap.Error(err))
			}
		})
		return d
	}
	for _, id := range game.AIPlayers() {
		d.ticker.Register(id, func(ctx context.Context, turn int) {
			if _, err := game.PlayTurn(ctx, id); err != nil && ctx.Err() == nil {
				logger.Warn("player turn failed", zap.Int("turn", turn), zap.Int("player", int(id)), zap.Error(err))
			}
		})
	}
	d.ticker.OnTurnEnd(func(ctx context.Context, turn int) {
		if err := game.EndTurn(ctx); err != nil {
			logger.Warn("saving unit state", zap.Int("turn", turn), zap.Error(err))
		}
	})
	return d
}

// Players returns the players the driver evaluates.
func (d *Driver) Players() []world.PlayerID {
	if d.pool != nil {
		ids := make([]world.PlayerID, 0, len(d.pool.workers))
		for _, w := range d.pool.workers {
			ids = append(ids, w.player)
		}
		return ids
	}
	d.ticker.mu.Lock()
	defer d.ticker.mu.Unlock()
	ids := make([]world.PlayerID, 0, len(d.ticker.players))
	for id := range d.ticker.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Played returns the number of completed turns.
func (d *Driver) Played() int { return d.ticker.Played() }

// Run plays turns until ctx is cancelled or the turn limit is reached.
//
// Postcondition: Returns server.ErrFinished after the last turn so the
// daemon stops, ctx.Err() on cancellation.
func (d *Driver) Run(ctx context.Context) error {
	if d.pool == nil {
		return d.finish(d.ticker.Run(ctx))
	}
	poolCtx, stopPool := context.WithCancel(ctx)
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		_ = d.pool.Run(poolCtx)
	}()
	err := d.ticker.Run(ctx)
	stopPool()
	<-poolDone
	return d.finish(err)
}

func (d *Driver) finish(err error) error {
	if err == nil {
		d.logger.Info("turn limit reached", zap.Int("turns", d.ticker.Played()))
		return server.ErrFinished
	}
	return err
}

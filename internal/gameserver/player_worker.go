package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// ErrWorkerClosed is returned when posting to a stopped worker.
var ErrWorkerClosed = errors.New("player worker closed")

// MsgKind selects what a worker message asks for.
type MsgKind int

const (
	// MsgRunTurn evaluates the player's turn.
	MsgRunTurn MsgKind = iota
	// MsgReserveImprovement asks which defensive building a city should queue.
	MsgReserveImprovement
	// MsgShutdown stops the worker after the messages queued before it.
	MsgShutdown
)

// Msg is one request to a PlayerWorker. Reply, when non-nil, receives
// exactly one Result and must have room for it.
type Msg struct {
	Kind  MsgKind
	City  world.CityID
	Reply chan<- Result
}

// Result answers one Msg.
type Result struct {
	Kind        MsgKind
	Report      *ai.TurnReport
	Reservation Reservation
	Err         error
}

// PlayerWorker evaluates one player on its own goroutine. Messages are
// handled strictly in the order posted.
type PlayerWorker struct {
	game   *Game
	player world.PlayerID
	logger *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Msg
	closed bool
}

// NewPlayerWorker creates a worker for player in game.
//
// Precondition: game and logger must be non-nil.
func NewPlayerWorker(game *Game, player world.PlayerID, logger *zap.Logger) *PlayerWorker {
	if game == nil || logger == nil {
		panic("gameserver.NewPlayerWorker: game and logger must not be nil")
	}
	w := &PlayerWorker{
		game:   game,
		player: player,
		logger: logger.With(zap.Int("player", int(player))),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Player returns the player this worker evaluates.
func (w *PlayerWorker) Player() world.PlayerID { return w.player }

// Post queues msg.
//
// Postcondition: Returns ErrWorkerClosed after a shutdown was posted or
// the worker stopped.
func (w *PlayerWorker) Post(msg Msg) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkerClosed
	}
	if msg.Kind == MsgShutdown {
		w.closed = true
	}
	w.queue = append(w.queue, msg)
	w.cond.Signal()
	return nil
}

// Shutdown asks the worker to stop once its queue drains.
func (w *PlayerWorker) Shutdown() {
	_ = w.Post(Msg{Kind: MsgShutdown})
}

// RunTurn posts a turn and waits for its report.
func (w *PlayerWorker) RunTurn(ctx context.Context) (*ai.TurnReport, error) {
	res, err := w.call(ctx, Msg{Kind: MsgRunTurn})
	if err != nil {
		return nil, err
	}
	return res.Report, res.Err
}

// ReserveImprovement posts a reservation request for city and waits for it.
func (w *PlayerWorker) ReserveImprovement(ctx context.Context, city world.CityID) (Reservation, error) {
	res, err := w.call(ctx, Msg{Kind: MsgReserveImprovement, City: city})
	if err != nil {
		return Reservation{}, err
	}
	return res.Reservation, res.Err
}

func (w *PlayerWorker) call(ctx context.Context, msg Msg) (Result, error) {
	reply := make(chan Result, 1)
	msg.Reply = reply
	if err := w.Post(msg); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// next blocks until a message is queued or ctx is cancelled.
func (w *PlayerWorker) next(ctx context.Context) (Msg, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && ctx.Err() == nil {
		w.cond.Wait()
	}
	if ctx.Err() != nil {
		return Msg{}, false
	}
	msg := w.queue[0]
	w.queue = w.queue[1:]
	return msg, true
}

// Run handles messages until a shutdown message or ctx cancellation.
// Messages still queued when the worker stops are answered with
// ErrWorkerClosed.
//
// Postcondition: Returns nil after a shutdown message, ctx.Err() otherwise.
func (w *PlayerWorker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer stop()
	defer w.drain()

	w.logger.Info("player worker started")
	for {
		msg, ok := w.next(ctx)
		if !ok {
			return ctx.Err()
		}
		res := Result{Kind: msg.Kind}
		switch msg.Kind {
		case MsgRunTurn:
			res.Report, res.Err = w.game.PlayTurn(ctx, w.player)
			if res.Err != nil {
				w.logger.Warn("turn failed", zap.Error(res.Err))
			}
		case MsgReserveImprovement:
			res.Reservation, res.Err = w.game.ReserveImprovement(w.player, msg.City)
		case MsgShutdown:
			w.logger.Info("player worker stopped")
			reply(msg, res)
			return nil
		default:
			res.Err = fmt.Errorf("gameserver.PlayerWorker: unknown message kind %d", msg.Kind)
		}
		reply(msg, res)
	}
}

func (w *PlayerWorker) drain() {
	w.mu.Lock()
	w.closed = true
	pending := w.queue
	w.queue = nil
	w.mu.Unlock()
	for _, msg := range pending {
		reply(msg, Result{Kind: msg.Kind, Err: ErrWorkerClosed})
	}
}

func reply(msg Msg, res Result) {
	if msg.Reply != nil {
		msg.Reply <- res
	}
}

// WorkerPool runs one PlayerWorker per AI player and steps them through
// turns together. Each player has its own queue; the Game serializes
// their access to the world.
type WorkerPool struct {
	game    *Game
	workers []*PlayerWorker
	logger  *zap.Logger
}

// NewWorkerPool creates a worker for every AI player of game.
func NewWorkerPool(game *Game, logger *zap.Logger) *WorkerPool {
	p := &WorkerPool{game: game, logger: logger}
	for _, id := range game.AIPlayers() {
		p.workers = append(p.workers, NewPlayerWorker(game, id, logger))
	}
	return p
}

// Workers returns the pool's workers ordered by player id.
func (p *WorkerPool) Workers() []*PlayerWorker { return p.workers }

// Turn posts a turn to every worker and waits for all of them, then ends
// the turn.
//
// Postcondition: Returns the joined failures of every player.
func (p *WorkerPool) Turn(ctx context.Context) error {
	replies := make([]chan Result, len(p.workers))
	var errs []error
	for i, w := range p.workers {
		replies[i] = make(chan Result, 1)
		if err := w.Post(Msg{Kind: MsgRunTurn, Reply: replies[i]}); err != nil {
			errs = append(errs, fmt.Errorf("player %d: %w", w.player, err))
			replies[i] = nil
		}
	}
	for i, ch := range replies {
		if ch == nil {
			continue
		}
		select {
		case res := <-ch:
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("player %d: %w", p.workers[i].player, res.Err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := p.game.EndTurn(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run starts every worker and blocks until ctx is cancelled, then shuts
// them down.
func (p *WorkerPool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

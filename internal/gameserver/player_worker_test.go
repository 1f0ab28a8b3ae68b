package gameserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/gameserver"
)

func startWorker(t *testing.T, w *gameserver.PlayerWorker) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestPlayerWorker_RunTurnThenReserve(t *testing.T) {
	g, _ := newSkirmish(t)
	w := gameserver.NewPlayerWorker(g, 1, zaptest.NewLogger(t))
	startWorker(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report, err := w.RunTurn(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, report.Cities)

	res, err := w.ReserveImprovement(ctx, report.Cities[0].City)
	require.NoError(t, err)
	assert.Equal(t, report.Cities[0].City, res.City)
}

func TestPlayerWorker_ShutdownAnswersInOrder(t *testing.T) {
	g, _ := newSkirmish(t)
	w := gameserver.NewPlayerWorker(g, 2, zaptest.NewLogger(t))

	turn := make(chan gameserver.Result, 1)
	stop := make(chan gameserver.Result, 1)
	require.NoError(t, w.Post(gameserver.Msg{Kind: gameserver.MsgRunTurn, Reply: turn}))
	require.NoError(t, w.Post(gameserver.Msg{Kind: gameserver.MsgShutdown, Reply: stop}))
	assert.ErrorIs(t, w.Post(gameserver.Msg{Kind: gameserver.MsgRunTurn}), gameserver.ErrWorkerClosed)

	_, done := startWorker(t, w)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop after shutdown")
	}
	res := <-turn
	require.NoError(t, res.Err)
	assert.Equal(t, world.PlayerID(2), res.Report.Player)
	assert.Equal(t, gameserver.MsgShutdown, (<-stop).Kind)
}

func TestPlayerWorker_CancelAnswersPending(t *testing.T) {
	g, _ := newSkirmish(t)
	w := gameserver.NewPlayerWorker(g, 1, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pending := make(chan gameserver.Result, 1)
	require.NoError(t, w.Post(gameserver.Msg{Kind: gameserver.MsgReserveImprovement, City: 1, Reply: pending}))
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
	assert.ErrorIs(t, (<-pending).Err, gameserver.ErrWorkerClosed)
	assert.ErrorIs(t, w.Post(gameserver.Msg{Kind: gameserver.MsgRunTurn}), gameserver.ErrWorkerClosed)
}

func TestPlayerWorker_IdleWorkerStopsOnCancel(t *testing.T) {
	g, _ := newSkirmish(t)
	w := gameserver.NewPlayerWorker(g, 1, zaptest.NewLogger(t))
	cancel, done := startWorker(t, w)
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("idle worker ignored cancellation")
	}
}

func TestWorkerPool_TurnRunsEveryPlayer(t *testing.T) {
	store := &memStore{}
	g, _ := newSkirmish(t, gameserver.WithStateStore(store))
	pool := gameserver.NewWorkerPool(g, zaptest.NewLogger(t))
	require.Len(t, pool.Workers(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	start := g.Turn()
	turnCtx, turnCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer turnCancel()
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Turn(turnCtx))
	}
	assert.Equal(t, start+2, g.Turn())
	for _, id := range g.AIPlayers() {
		_, err := g.Report(id)
		assert.NoError(t, err)
	}
	assert.NotEmpty(t, store.saved["skirmish"])

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop")
	}
}

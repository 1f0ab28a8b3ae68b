package gameserver_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/gameserver"
)

func TestTurnTicker_StepOrdersPlayersThenEndHooks(t *testing.T) {
	tt := gameserver.NewTurnTicker(time.Hour, 0)
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) gameserver.TurnFunc {
		return func(context.Context, int) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}
	tt.OnTurnEnd(record("end"))
	tt.Register(3, record("p3"))
	tt.Register(1, record("p1"))
	tt.Register(2, record("p2"))

	assert.Equal(t, 1, tt.Step(context.Background()))
	assert.Equal(t, []string{"p1", "p2", "p3", "end"}, order)
	assert.Equal(t, 1, tt.Played())
}

func TestTurnTicker_UnregisterSkipsPlayer(t *testing.T) {
	tt := gameserver.NewTurnTicker(time.Hour, 0)
	var calls atomic.Int64
	tt.Register(1, func(context.Context, int) { calls.Add(1) })
	tt.Step(context.Background())
	tt.Unregister(1)
	tt.Step(context.Background())
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 2, tt.Played())
}

func TestTurnTicker_RunStopsAfterMaxTurns(t *testing.T) {
	tt := gameserver.NewTurnTicker(5*time.Millisecond, 3)
	var turns []int
	tt.OnTurnEnd(func(_ context.Context, turn int) { turns = append(turns, turn) })

	done := make(chan error, 1)
	go func() { done <- tt.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ticker did not stop after max turns")
	}
	assert.Equal(t, []int{1, 2, 3}, turns)
}

func TestTurnTicker_RunStopsOnCancel(t *testing.T) {
	tt := gameserver.NewTurnTicker(10*time.Millisecond, 0)
	called := make(chan struct{}, 1)
	tt.Register(1, func(context.Context, int) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tt.Run(ctx) }()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("turn callback not invoked within timeout")
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ticker ignored cancellation")
	}
}

func TestTurnTicker_CancelledStepIsNotCounted(t *testing.T) {
	tt := gameserver.NewTurnTicker(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	tt.Register(1, func(context.Context, int) { cancel() })
	tt.Register(2, func(context.Context, int) { t.Error("player 2 ran after cancellation") })
	tt.Step(ctx)
	assert.Zero(t, tt.Played())
}

func TestNewTurnTicker_Panics(t *testing.T) {
	assert.Panics(t, func() { gameserver.NewTurnTicker(0, 0) })
	assert.Panics(t, func() { gameserver.NewTurnTicker(time.Second, -1) })
}

// Property: Step numbers turns consecutively and every registered player
// plays exactly once per turn.
func TestTurnTicker_PropertyEveryPlayerOncePerTurn(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		players := rapid.IntRange(0, 6).Draw(rt, "players")
		steps := rapid.IntRange(1, 5).Draw(rt, "steps")
		tt := gameserver.NewTurnTicker(time.Hour, 0)
		counts := make(map[world.PlayerID]int)
		for p := 1; p <= players; p++ {
			id := world.PlayerID(p)
			tt.Register(id, func(context.Context, int) { counts[id]++ })
		}
		for i := 1; i <= steps; i++ {
			if got := tt.Step(context.Background()); got != i {
				rt.Fatalf("step %d returned turn %d", i, got)
			}
		}
		for p := 1; p <= players; p++ {
			if counts[world.PlayerID(p)] != steps {
				rt.Fatalf("player %d played %d turns, want %d", p, counts[world.PlayerID(p)], steps)
			}
		}
	})
}

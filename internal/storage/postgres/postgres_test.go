package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/storage/postgres"
)

func TestPool_HealthAndRepositories(t *testing.T) {
	pc := setupDB(t)
	ctx := context.Background()
	require.NoError(t, pc.Pool.Health(ctx, 5*time.Second))

	game := uniqueGame("pool")
	require.NoError(t, pc.Pool.UnitStates(zaptest.NewLogger(t)).Save(ctx, game, []ai.PersistedUnit{{UnitID: 1, Task: ai.TaskTrade}}))
	rows, err := pc.Pool.UnitStates(zaptest.NewLogger(t)).Load(ctx, game)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	history, err := pc.Pool.Threats().History(ctx, game, 1, 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPool_WatchClosesOnCancel(t *testing.T) {
	pc := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pc.Pool.Watch(ctx, 10*time.Millisecond, zaptest.NewLogger(t)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
	assert.Error(t, pc.Pool.Health(context.Background(), time.Second))
}

func TestNewPool_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "u", Name: "n", SSLMode: "disable", MaxConns: 1,
	})
	assert.Error(t, err)
}

package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/tactics/internal/game/world"
)

// TurnFunc evaluates one player's part of turn.
type TurnFunc func(ctx context.Context, turn int)

// TurnTicker plays a turn every interval: each registered player in id
// order, then the end-of-turn hooks.
//
// Invariant: turns never overlap; a slow turn delays the next tick.
type TurnTicker struct {
	interval time.Duration
	maxTurns int

	mu      sync.Mutex
	players map[world.PlayerID]TurnFunc
	endHook []TurnFunc
	played  int
}

// NewTurnTicker returns a ticker that plays a turn every interval and
// stops after maxTurns turns; 0 plays until cancelled.
//
// Precondition: interval must be > 0; maxTurns must be >= 0.
func NewTurnTicker(interval time.Duration, maxTurns int) *TurnTicker {
	if interval <= 0 {
		panic("gameserver.NewTurnTicker: interval must be > 0")
	}
	if maxTurns < 0 {
		panic("gameserver.NewTurnTicker: maxTurns must be >= 0")
	}
	return &TurnTicker{
		interval: interval,
		maxTurns: maxTurns,
		players:  make(map[world.PlayerID]TurnFunc),
	}
}

// Register sets the callback of player. Replaces any existing callback.
func (t *TurnTicker) Register(player world.PlayerID, fn TurnFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.players[player] = fn
}

// Unregister removes the callback of player.
func (t *TurnTicker) Unregister(player world.PlayerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.players, player)
}

// OnTurnEnd adds a hook run after every player has played.
func (t *TurnTicker) OnTurnEnd(fn TurnFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endHook = append(t.endHook, fn)
}

// Played returns the number of turns completed.
func (t *TurnTicker) Played() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.played
}

// Step plays one turn synchronously and returns its number, counting from 1.
func (t *TurnTicker) Step(ctx context.Context) int {
	t.mu.Lock()
	ids := make([]world.PlayerID, 0, len(t.players))
	for id := range t.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	callbacks := make([]TurnFunc, 0, len(ids)+len(t.endHook))
	for _, id := range ids {
		callbacks = append(callbacks, t.players[id])
	}
	callbacks = append(callbacks, t.endHook...)
	turn := t.played + 1
	t.mu.Unlock()

	for _, fn := range callbacks {
		if ctx.Err() != nil {
			return turn
		}
		fn(ctx, turn)
	}

	t.mu.Lock()
	t.played = turn
	t.mu.Unlock()
	return turn
}

// Run plays turns until ctx is cancelled or maxTurns turns were played.
//
// Postcondition: Returns nil once maxTurns is reached, ctx.Err() otherwise.
func (t *TurnTicker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if turn := t.Step(ctx); t.maxTurns > 0 && turn >= t.maxTurns && t.Played() == turn {
				return nil
			}
		}
	}
}

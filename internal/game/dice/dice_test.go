package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

type fixedSource struct{ v int }

func (f fixedSource) Intn(n int) int { return f.v % n }

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		v := src.Intn(n)
		assert.GreaterOrEqual(rt, v, 0)
		assert.Less(rt, v, n)
	})
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		a := dice.NewSeededSource(seed)
		b := dice.NewSeededSource(seed)
		for i := 0; i < 20; i++ {
			n := i + 1
			va, vb := a.Intn(n), b.Intn(n)
			assert.Equal(rt, va, vb)
			assert.GreaterOrEqual(rt, va, 0)
			assert.Less(rt, va, n)
		}
	})
}

func TestSeededSource_PanicsOnNegative(t *testing.T) {
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(-1) })
}

func TestRoller_IntnLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(fixedSource{v: 7}, zap.New(core))

	assert.Equal(t, 7, r.Intn(10, "combat round"))
	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "combat round", entries[0].ContextMap()["purpose"])
	assert.EqualValues(t, 7, entries[0].ContextMap()["result"])
}

func TestRoller_ChanceBounds(t *testing.T) {
	r := dice.NewLoggedRoller(fixedSource{v: 99}, zap.NewNop())
	assert.False(t, r.Chance(0, "never"))
	assert.True(t, r.Chance(100, "always"))
	assert.False(t, r.Chance(99, "draw 99 misses 99%"))

	low := dice.NewLoggedRoller(fixedSource{v: 0}, zap.NewNop())
	assert.True(t, low.Chance(1, "draw 0 hits 1%"))
}

func TestRoller_FuzzyFlips(t *testing.T) {
	flip := dice.NewLoggedRoller(fixedSource{v: 0}, zap.NewNop())
	assert.False(t, flip.Fuzzy(true, 1))
	assert.True(t, flip.Fuzzy(true, 0), "zero fuzziness never flips")

	keep := dice.NewLoggedRoller(fixedSource{v: 999}, zap.NewNop())
	assert.True(t, keep.Fuzzy(true, 500))
}

func TestNewLoggedRoller_NilPanics(t *testing.T) {
	assert.Panics(t, func() { dice.NewLoggedRoller(nil, zap.NewNop()) })
	assert.Panics(t, func() { dice.NewLoggedRoller(fixedSource{}, nil) })
}

package report_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
	"github.com/cory-johannsen/tactics/internal/report"
)

func sampleReport() *ai.TurnReport {
	return &ai.TurnReport{
		RunID:  uuid.New(),
		Player: 1,
		Turn:   12,
		Cities: []ai.CityReport{
			{City: 3, Name: "Roma", Danger: 420, Urgency: 2, GraveDanger: 1, WallValue: 90,
				BuildingWant: map[string]ai.Want{"city_walls": 35.5, "coastal_defense": 4}},
			{City: 4, Name: "Antium"},
		},
		Died:         []world.UnitID{17},
		BoatRequests: []ai.BoatRequest{{Unit: 9}},
		Tasks:        map[ai.Task]int{ai.TaskDefendHome: 2, ai.TaskAttack: 1},
	}
}

func TestSummarize(t *testing.T) {
	got := report.Summarize(sampleReport())
	assert.Contains(t, got, "Turn 12, player 1: 2 cities assessed")
	assert.Contains(t, got, "Roma (grave, danger 420)")
	assert.NotContains(t, got, "Antium (")
	assert.Contains(t, got, "2 defend_home, 1 attack")
	assert.Contains(t, got, "1 units died")
	assert.Contains(t, got, "1 units are waiting for a boat")
}

func TestSummarize_Quiet(t *testing.T) {
	got := report.Summarize(&ai.TurnReport{Player: 2, Turn: 1})
	assert.Equal(t, "Turn 1, player 2: 0 cities assessed; no city is threatened.", got)
}

func TestWriteThreats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteThreats(&buf, sampleReport()))
	out := buf.String()
	assert.Contains(t, out, "Roma")
	assert.Contains(t, out, "420")
	assert.Contains(t, out, "city_walls (35.5)")
	assert.Contains(t, out, "Antium")
}

func TestWriteTasks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteTasks(&buf, sampleReport()))
	assert.Contains(t, buf.String(), "defend_home")
	assert.NotContains(t, buf.String(), "explore")
}

func TestWriteTargets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteTargets(&buf, []report.Target{
		{Unit: "legion#4", Tile: "(5,2)", Want: 12, Detail: "city Utica"},
	}))
	assert.Contains(t, buf.String(), "legion#4")
	assert.Contains(t, buf.String(), "12.0")
}

type fakeMessages struct {
	params anthropic.MessageNewParams
	reply  *anthropic.Message
	err    error
}

func (f *fakeMessages) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = body
	return f.reply, f.err
}

func TestNarrator_UsesModelText(t *testing.T) {
	fake := &fakeMessages{reply: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: "  Roma is besieged; build walls.  "}},
	}}
	n := report.NewNarratorWith(fake, "claude-sonnet-4-5", 256, zaptest.NewLogger(t))

	text, err := n.Narrate(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "Roma is besieged; build walls.", text)
	assert.Equal(t, int64(256), fake.params.MaxTokens)
	assert.Equal(t, anthropic.Model("claude-sonnet-4-5"), fake.params.Model)
	require.Len(t, fake.params.Messages, 1)
}

func TestNarrator_FallsBackOnError(t *testing.T) {
	boom := errors.New("overloaded")
	n := report.NewNarratorWith(&fakeMessages{err: boom}, "m", 64, zaptest.NewLogger(t))
	r := sampleReport()
	text, err := n.Narrate(context.Background(), r)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, report.Summarize(r), text)
}

func TestNarrator_EmptyReplyFallsBack(t *testing.T) {
	n := report.NewNarratorWith(&fakeMessages{reply: &anthropic.Message{}}, "m", 64, zaptest.NewLogger(t))
	r := sampleReport()
	text, err := n.Narrate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, report.Summarize(r), text)
}

func TestNewNarrator_DisabledOrKeyless(t *testing.T) {
	r := sampleReport()
	n := report.NewNarrator(config.NarratorConfig{}, zaptest.NewLogger(t))
	text, err := n.Narrate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, report.Summarize(r), text)

	t.Setenv("TACTICS_TEST_MISSING_KEY", "")
	n = report.NewNarrator(config.NarratorConfig{
		Enabled: true, Model: "m", MaxTokens: 10, APIKeyEnv: "TACTICS_TEST_MISSING_KEY",
	}, zaptest.NewLogger(t))
	text, err = n.Narrate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, report.Summarize(r), text)
}

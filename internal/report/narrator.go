package report

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/ai"
)

const narratorSystem = "You are the war advisor of a turn-based strategy empire. " +
	"Given the facts of one turn, write two or three short sentences for the ruler. " +
	"Mention only cities and numbers that appear in the facts."

// MessageCreator sends one Messages API request. *anthropic.MessageService
// implements it.
type MessageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Narrator turns turn reports into prose. Without a model client it
// returns the plain Summarize text.
type Narrator struct {
	messages  MessageCreator
	model     string
	maxTokens int64
	logger    *zap.Logger
}

// NewNarrator builds a Narrator from cfg. The model is used only when
// cfg.Enabled is set and the environment variable cfg.APIKeyEnv holds a key.
//
// Precondition: logger must be non-nil.
func NewNarrator(cfg config.NarratorConfig, logger *zap.Logger) *Narrator {
	if logger == nil {
		panic("report.NewNarrator: logger must not be nil")
	}
	n := &Narrator{model: cfg.Model, maxTokens: cfg.MaxTokens, logger: logger}
	if !cfg.Enabled {
		return n
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		logger.Warn("narrator enabled without an API key, using plain summaries", zap.String("env", cfg.APIKeyEnv))
		return n
	}
	client := anthropic.NewClient(option.WithAPIKey(key))
	n.messages = &client.Messages
	return n
}

// NewNarratorWith builds a Narrator over an explicit message client.
func NewNarratorWith(messages MessageCreator, model string, maxTokens int64, logger *zap.Logger) *Narrator {
	return &Narrator{messages: messages, model: model, maxTokens: maxTokens, logger: logger}
}

// Narrate describes r. Model failures fall back to the plain summary and
// are reported through the returned error alongside it.
//
// Postcondition: The returned text is never empty.
func (n *Narrator) Narrate(ctx context.Context, r *ai.TurnReport) (string, error) {
	plain := Summarize(r)
	if n.messages == nil {
		return plain, nil
	}
	msg, err := n.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: n.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: narratorSystem}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(plain)),
		},
	})
	if err != nil {
		return plain, fmt.Errorf("report.Narrate: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return plain, nil
	}
	n.logger.Debug("narrated turn",
		zap.Int("turn", r.Turn),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return text, nil
}

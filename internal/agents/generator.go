package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/engine"
)

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// LLMGenerator generates text with an engine.LLMClient. When streaming is
// enabled the deltas are concatenated; callers always get the whole string.
type LLMGenerator struct {
	client    engine.LLMClient
	config    engine.GenerationConfig
	tokenizer engine.Tokenizer
	logger    *zap.Logger
}

// NewLLMGenerator creates a generator for the given client and settings.
func NewLLMGenerator(client engine.LLMClient, config engine.GenerationConfig, logger *zap.Logger) *LLMGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMGenerator{
		client:    client,
		config:    config,
		tokenizer: engine.GetTokenizerForModel(config.Model),
		logger:    logger,
	}
}

// Generate sends prompt as a single user message and returns the trimmed reply.
// It returns ErrEmptyResponse when the model produced only whitespace.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []engine.ChatMessage{{Role: engine.RoleUser, Content: prompt}}
	opts := g.config.ChatOptions()

	start := time.Now()
	text, err := engine.RetryWithPolicy(
		ctx,
		g.config.Retry.LLMPolicy,
		func(ctx context.Context) (string, error) {
			if g.config.Stream {
				return g.stream(ctx, messages, opts)
			}
			resp, err := g.client.Chat(ctx, g.config.Model, messages, opts)
			if err != nil {
				return "", err
			}
			return resp.Assistant.Content, nil
		},
		engine.ClassifyLLMError,
		func(attempt int, delay time.Duration, err error) {
			g.logger.Warn("model call retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	)
	elapsed := time.Since(start)

	if err != nil {
		g.logger.Error("model call ERROR",
			zap.String("model", g.config.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}

	promptTokens, tokErr := engine.CountTokensForMessages(g.tokenizer, messages, g.config.Model)
	if tokErr != nil {
		promptTokens = engine.EstimateTokens(prompt)
	}
	g.logger.Info("model call OK",
		zap.String("model", g.config.Model),
		zap.Duration("elapsed", elapsed),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("response_len", len(text)))

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *LLMGenerator) stream(ctx context.Context, messages []engine.ChatMessage, opts engine.ChatOptions) (string, error) {
	events, errs := g.client.Stream(ctx, g.config.Model, messages, opts)

	var sb strings.Builder
	for ev := range events {
		if ev.Type == "text_delta" {
			sb.WriteString(ev.Text)
		}
	}
	if err, ok := <-errs; ok && err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("stream interrupted: %w", err)
	}
	return sb.String(), nil
}

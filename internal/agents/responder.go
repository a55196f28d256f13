package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/engine"
	"github.com/ChamsBouzaiene/phoenix/internal/prompts"
)

// HistorySummaryLength caps the response text kept in a responder's history.
const HistorySummaryLength = 400

// Responder answers a prompt in the light of the session context.
// Implementations report failures in the Result instead of returning errors.
type Responder interface {
	Name() string
	Respond(ctx context.Context, prompt, sessionContext string) Result
}

// HistoryEntry records one call made to a responder.
type HistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Agent           string    `json:"agent"`
	Prompt          string    `json:"prompt"`
	ResponseSummary string    `json:"response_summary"`
}

// PersonaResponder wraps a persona prompt and a Generator.
// The persona is looked up on every call, so registry reloads apply to the
// next query.
type PersonaResponder struct {
	name     string
	persona  string
	registry *prompts.PromptRegistry
	gen      Generator
	logger   *zap.Logger

	mu      sync.Mutex
	history []HistoryEntry
}

// NewPersonaResponder creates a responder that uses the persona registered
// under name.
func NewPersonaResponder(name string, gen Generator, registry *prompts.PromptRegistry, logger *zap.Logger) *PersonaResponder {
	return NewPersonaResponderWithID(name, name, gen, registry, logger)
}

// NewPersonaResponderWithID creates a responder whose persona prompt ID
// differs from its display name.
func NewPersonaResponderWithID(name, personaID string, gen Generator, registry *prompts.PromptRegistry, logger *zap.Logger) *PersonaResponder {
	if registry == nil {
		registry = prompts.DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonaResponder{
		name:     name,
		persona:  personaID,
		registry: registry,
		gen:      gen,
		logger:   logger.With(zap.String("agent", name)),
	}
}

// Name returns the responder's name.
func (p *PersonaResponder) Name() string {
	return p.name
}

// BuildPrompt renders the full prompt sent to the generator.
func (p *PersonaResponder) BuildPrompt(prompt, sessionContext string) (string, error) {
	persona := p.registry.Content(p.persona)
	if persona == "" {
		return "", fmt.Errorf("persona %q is not registered", p.persona)
	}

	b, err := prompts.NewLatestPromptBuilder(p.registry, prompts.ResponderTemplateID)
	if err != nil {
		return "", err
	}
	return b.
		SetVariable("persona", persona).
		SetVariable("context", sessionContext).
		SetVariable("prompt", prompt).
		Build()
}

// Respond generates an answer. It never panics on generator errors; they are
// carried in the Result.
func (p *PersonaResponder) Respond(ctx context.Context, prompt, sessionContext string) Result {
	start := time.Now()
	res := p.respond(ctx, prompt, sessionContext)
	res.Duration = time.Since(start)

	p.record(prompt, res)
	return res
}

func (p *PersonaResponder) respond(ctx context.Context, prompt, sessionContext string) Result {
	full, err := p.BuildPrompt(prompt, sessionContext)
	if err != nil {
		return Failure(p.name, err)
	}

	p.logger.Info("generate called", zap.Int("prompt_len", len(full)))

	text, err := p.gen.Generate(ctx, full)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return Result{Agent: p.name, Text: NoResponseText, Empty: true}
	case err != nil:
		return Failure(p.name, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Agent: p.name, Text: NoResponseText, Empty: true}
	}
	return Result{Agent: p.name, Text: text}
}

func (p *PersonaResponder) record(prompt string, res Result) {
	p.mu.Lock()
	p.history = append(p.history, HistoryEntry{
		Timestamp:       time.Now(),
		Agent:           p.name,
		Prompt:          prompt,
		ResponseSummary: engine.TruncateRunes(res.Display(), HistorySummaryLength),
	})
	p.mu.Unlock()

	p.logger.Debug("interaction logged", zap.Bool("failed", res.Failed()))
}

// History returns a copy of the calls made to this responder.
func (p *PersonaResponder) History() []HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HistoryEntry, len(p.history))
	copy(out, p.history)
	return out
}

package orchestrator

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
	"github.com/ChamsBouzaiene/phoenix/internal/prompts"
)

// NoCodeMarker stands in for user code in the integration prompt when none
// was supplied.
const NoCodeMarker = "NO CODE PROVIDED"

// Response is one category's answer, in dispatch order.
type Response struct {
	Category agents.Category
	Text     string
}

// Synthesis is the merged answer.
type Synthesis struct {
	Text        string
	Synthesized bool          // false when a single response was passed through
	Result      agents.Result // the synthesis call, when Synthesized
}

// Synthesizer merges several agent answers into one.
type Synthesizer struct {
	responder agents.Responder
	registry  *prompts.PromptRegistry
	logger    *zap.Logger
}

// NewSynthesizer creates a synthesizer that merges with responder, normally
// the Orchestrator persona.
func NewSynthesizer(responder agents.Responder, registry *prompts.PromptRegistry, logger *zap.Logger) *Synthesizer {
	if registry == nil {
		registry = prompts.DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{responder: responder, registry: registry, logger: logger}
}

// Synthesize returns a single response verbatim without any generation
// call. Several responses are merged by the synthesis responder; its failure
// is reported as error-tagged text.
func (s *Synthesizer) Synthesize(ctx context.Context, query, code, sessionContext string, responses []Response) Synthesis {
	switch len(responses) {
	case 0:
		return Synthesis{Text: agents.NoResponseText}
	case 1:
		return Synthesis{Text: responses[0].Text}
	}

	prompt, err := s.IntegrationPrompt(query, code, sessionContext, responses)
	if err != nil {
		res := agents.Failure(agents.OrchestratorPersona, err)
		return Synthesis{Text: res.Display(), Synthesized: true, Result: res}
	}

	s.logger.Info("synthesizing", zap.Int("responses", len(responses)))
	res := s.responder.Respond(ctx, prompt, sessionContext)
	return Synthesis{Text: res.Display(), Synthesized: true, Result: res}
}

// IntegrationPrompt renders the prompt used to merge several responses.
func (s *Synthesizer) IntegrationPrompt(query, code, sessionContext string, responses []Response) (string, error) {
	codeSection := NoCodeMarker
	if strings.TrimSpace(code) != "" {
		codeSection = "USER CODE:\n" + code
	}

	b, err := prompts.NewLatestPromptBuilder(s.registry, prompts.SynthesisTemplateID)
	if err != nil {
		return "", err
	}
	return b.
		SetVariable("query", query).
		SetVariable("code", codeSection).
		SetVariable("context", sessionContext).
		SetVariable("responses", responsesJSON(responses)).
		Build()
}

// responsesJSON renders responses as an indented JSON object that keeps
// dispatch order.
func responsesJSON(responses []Response) string {
	if len(responses) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for i, r := range responses {
		key, _ := json.MarshalNoEscape(string(r.Category))
		val, _ := json.MarshalNoEscape(r.Text)
		b.WriteString("  ")
		b.Write(key)
		b.WriteString(": ")
		b.Write(val)
		if i < len(responses)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

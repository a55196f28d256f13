package factory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/phoenix/internal/config"
	"github.com/ChamsBouzaiene/phoenix/internal/engine"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/orchestrator"
)

// scriptedLLM answers every chat call with reply and records system prompts.
type scriptedLLM struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (s *scriptedLLM) Chat(ctx context.Context, model string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	return engine.LLMResponse{Assistant: engine.ChatMessage{Role: engine.RoleAssistant, Content: s.reply}}, nil
}

func (s *scriptedLLM) Stream(ctx context.Context, model string, messages []engine.ChatMessage, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	events := make(chan engine.StreamEvent, 1)
	errs := make(chan error)
	events <- engine.StreamEvent{Type: "text_delta", Text: s.reply}
	close(events)
	close(errs)
	return events, errs
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	gen := engine.DefaultGenerationConfig()
	gen.Stream = false
	return &config.Settings{
		UserID:     "ada",
		SkillLevel: "beginner",
		DataDir:    t.TempDir(),
		Generation: gen,
		Limits:     observability.DefaultLimits(),
	}
}

func TestBuildTutorEndToEnd(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	llm := &scriptedLLM{reply: "Recursion is when a function calls itself."}

	var hooked []orchestrator.Outcome
	tutor, err := BuildTutor(ctx, settings, llm, "test-model", nil, func(ctx context.Context, out orchestrator.Outcome) {
		hooked = append(hooked, out)
	})
	require.NoError(t, err)
	defer tutor.Close()

	id, err := tutor.StartSession("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "session_ada_"))

	out := tutor.Orchestrator.ProcessQuery(ctx, "explain recursion", "")
	assert.Equal(t, "Recursion is when a function calls itself.", out.FinalResponse)
	require.Len(t, hooked, 1)

	require.Len(t, llm.prompts, 1)
	assert.True(t, strings.HasPrefix(llm.prompts[0], "SYSTEM:\nYou are ConceptExplainer"))

	n, err := tutor.History.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := tutor.Search.Search(ctx, "recursion", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, out.InteractionID, hits[0].ID)

	saved, err := tutor.Store.Load(id, "ada")
	require.NoError(t, err)
	assert.Equal(t, []string{"function", "recursion"}, saved.ConceptsCovered)
	assert.Equal(t, 10, saved.ProgressScore)
}

func TestStartSessionResume(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	llm := &scriptedLLM{reply: "A loop repeats."}

	first, err := BuildTutor(ctx, settings, llm, "test-model", nil)
	require.NoError(t, err)
	id, err := first.StartSession(ResumeLatest)
	require.NoError(t, err, "resuming with nothing saved starts fresh")
	first.Orchestrator.ProcessQuery(ctx, "explain loops please", "")
	require.NoError(t, first.Close())

	second, err := BuildTutor(ctx, settings, llm, "test-model", nil)
	require.NoError(t, err)
	defer second.Close()

	resumed, err := second.StartSession(ResumeLatest)
	require.NoError(t, err)
	assert.Equal(t, id, resumed)
	assert.Equal(t, []string{"loop"}, second.Sessions.Context().ConceptsCovered)

	byID, err := second.StartSession(id)
	require.NoError(t, err)
	assert.Equal(t, id, byID)

	_, err = second.StartSession("session_ada_19990101000000")
	assert.Error(t, err)
}

func TestBuildTutorAppliesPersonaOverrides(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	settings.PersonasFile = filepath.Join(settings.DataDir, "personas.yaml")
	require.NoError(t, os.WriteFile(settings.PersonasFile, []byte(`prompts:
  - id: ConceptExplainer
    content: You explain things with analogies.
`), 0644))

	llm := &scriptedLLM{reply: "Like a mirror facing a mirror."}
	tutor, err := BuildTutor(ctx, settings, llm, "test-model", nil)
	require.NoError(t, err)
	defer tutor.Close()

	_, err = tutor.StartSession("")
	require.NoError(t, err)
	tutor.Orchestrator.ProcessQuery(ctx, "explain recursion", "")

	require.Len(t, llm.prompts, 1)
	assert.True(t, strings.HasPrefix(llm.prompts[0], "SYSTEM:\nYou explain things with analogies.\n"))
}

func TestBuildTutorRejectsBadPersonaFile(t *testing.T) {
	settings := testSettings(t)
	settings.PersonasFile = filepath.Join(settings.DataDir, "personas.yaml")
	require.NoError(t, os.WriteFile(settings.PersonasFile, []byte("prompts: [{id: ''}]"), 0644))

	_, err := BuildTutor(context.Background(), settings, &scriptedLLM{}, "m", nil)
	assert.Error(t, err)
}

func TestWatchPersonasWithoutFile(t *testing.T) {
	tutor, err := BuildTutor(context.Background(), testSettings(t), &scriptedLLM{}, "m", nil)
	require.NoError(t, err)
	defer tutor.Close()

	assert.NoError(t, tutor.WatchPersonas(context.Background()))
}

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/prompts"
	"github.com/ChamsBouzaiene/phoenix/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubResponder replays a fixed reply and records every prompt it receives.
type stubResponder struct {
	name    string
	reply   string
	err     error
	panics  bool
	mu      sync.Mutex
	prompts []string
	ctxs    []string
}

func (s *stubResponder) Name() string { return s.name }

func (s *stubResponder) Respond(ctx context.Context, prompt, sessionContext string) agents.Result {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.ctxs = append(s.ctxs, sessionContext)
	s.mu.Unlock()
	if s.panics {
		panic("responder exploded")
	}
	if s.err != nil {
		return agents.Failure(s.name, s.err)
	}
	return agents.Result{Agent: s.name, Text: s.reply}
}

func (s *stubResponder) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type harness struct {
	orch     *Orchestrator
	sessions *session.Manager
	log      *observability.InteractionLog
	synth    *stubResponder
	agents   map[agents.Category]*stubResponder
}

func newHarness(t *testing.T, register ...agents.Category) *harness {
	t.Helper()
	reg := prompts.NewPromptRegistry()
	prompts.RegisterBuiltins(reg)

	h := &harness{
		sessions: session.NewManager(nil),
		log:      observability.NewInteractionLog(observability.DefaultLimits(), nil),
		synth:    &stubResponder{name: agents.OrchestratorPersona, reply: "merged answer"},
		agents:   make(map[agents.Category]*stubResponder),
	}
	h.sessions.CreateSession("tester", "beginner")
	h.orch = New(h.sessions, h.log, NewSynthesizer(h.synth, reg, nil))

	for _, c := range register {
		s := &stubResponder{name: string(c), reply: "answer from " + string(c)}
		h.agents[c] = s
		h.orch.RegisterAgent(c, s)
	}
	return h
}

func TestGeneralChatLeavesSessionUnchanged(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.agents[agents.GeneralChat].reply = "Hi! Want to learn about a function or a loop?"
	before := h.sessions.Context()

	out := h.orch.ProcessQuery(context.Background(), "hi", "")

	assert.Equal(t, []agents.Category{agents.GeneralChat}, out.AgentsConsulted)
	assert.Equal(t, "Hi! Want to learn about a function or a loop?", out.FinalResponse)
	after := h.sessions.Context()
	assert.Equal(t, before.ProgressScore, after.ProgressScore)
	assert.Equal(t, before.ConceptsCovered, after.ConceptsCovered)
	assert.Empty(t, after.CodeReviews)
	assert.Equal(t, 1, h.log.Len())
}

func TestExplainRecursionAddsConcept(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.agents[agents.ConceptExplainer].reply = "It is when something refers to itself."

	out := h.orch.ProcessQuery(context.Background(), "explain recursion", "")

	assert.Equal(t, []agents.Category{agents.ConceptExplainer}, out.AgentsConsulted)
	ctx := h.sessions.Context()
	assert.Equal(t, []string{"recursion"}, ctx.ConceptsCovered)
	assert.Equal(t, 5, ctx.ProgressScore)

	h.orch.ProcessQuery(context.Background(), "explain recursion", "")
	ctx = h.sessions.Context()
	assert.Equal(t, []string{"recursion"}, ctx.ConceptsCovered)
	assert.Equal(t, 5, ctx.ProgressScore, "progress is only awarded for new concepts")
}

func TestConceptsFromResponsesCountOnce(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.agents[agents.ConceptExplainer].reply = "A class groups data; a class method is a function. Loop over a list."

	h.orch.ProcessQuery(context.Background(), "explain objects", "")

	ctx := h.sessions.Context()
	assert.Equal(t, []string{"function", "loop", "class", "list"}, ctx.ConceptsCovered)
	assert.Equal(t, 20, ctx.ProgressScore)
}

func TestFixErrorWithCodeReachesDebugger(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	code := "def f(x):\n    return x / 0"

	out := h.orch.ProcessQuery(context.Background(), "fix this error", code)

	assert.Contains(t, out.AgentsConsulted, agents.Debugger)
	dbg := h.agents[agents.Debugger]
	require.Equal(t, 1, dbg.calls())
	assert.Equal(t, "User Query: fix this error\n\nCode to analyze:\n"+code, dbg.prompts[0])

	rev := h.agents[agents.CodeReviewer]
	require.Equal(t, 1, rev.calls())
	assert.Contains(t, rev.prompts[0], code)

	ctx := h.sessions.Context()
	require.Len(t, ctx.CodeReviews, 1)
	assert.Equal(t, "fix this error", ctx.CodeReviews[0].Query)
}

func TestCodeIsOnlySentToCodeAgents(t *testing.T) {
	h := newHarness(t, agents.Categories()...)

	h.orch.ProcessQuery(context.Background(), "explain this bug", "print(x)")

	assert.Equal(t, "explain this bug", h.agents[agents.ConceptExplainer].prompts[0])
	assert.Contains(t, h.agents[agents.Debugger].prompts[0], "print(x)")
}

func TestUnregisteredCategoryGetsPlaceholder(t *testing.T) {
	h := newHarness(t, agents.Debugger)

	var out Outcome
	require.NotPanics(t, func() {
		out = h.orch.ProcessQuery(context.Background(), "please review this", "x = 1")
	})

	assert.Equal(t, []agents.Category{agents.CodeReviewer}, out.AgentsConsulted)
	assert.Equal(t, "[CodeReviewer not registered]", out.AgentResponses[agents.CodeReviewer])
	assert.Equal(t, "[CodeReviewer not registered]", out.FinalResponse)
	assert.Equal(t, map[string]int{"CodeReviewer": 1}, h.log.UsageStats())
}

func TestSingleCategoryIsNotSynthesized(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.agents[agents.CodeGenerator].reply = "print('hello')"

	out := h.orch.ProcessQuery(context.Background(), "write a script that greets", "")

	assert.Equal(t, []agents.Category{agents.CodeGenerator}, out.AgentsConsulted)
	assert.Equal(t, "print('hello')", out.FinalResponse)
	assert.False(t, out.Synthesized)
	assert.Zero(t, h.synth.calls())
}

func TestMultipleCategoriesAreSynthesized(t *testing.T) {
	h := newHarness(t, agents.Categories()...)

	out := h.orch.ProcessQuery(context.Background(), "explain and fix this bug", "")

	assert.Equal(t, []agents.Category{agents.ConceptExplainer, agents.Debugger}, out.AgentsConsulted)
	assert.True(t, out.Synthesized)
	assert.Equal(t, "merged answer", out.FinalResponse)
	require.Equal(t, 1, h.synth.calls())

	prompt := h.synth.prompts[0]
	assert.Contains(t, prompt, "USER QUERY:\nexplain and fix this bug")
	assert.Contains(t, prompt, NoCodeMarker)
	assert.Contains(t, prompt, "SESSION CONTEXT:\n"+h.synth.ctxs[0])
	assert.Less(t, strings.Index(prompt, `"ConceptExplainer"`), strings.Index(prompt, `"Debugger"`))
	assert.Contains(t, prompt, "Start by listing which specialized agents were consulted")
}

func TestAgentFailureDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.agents[agents.ConceptExplainer].err = errors.New("quota exceeded")
	h.agents[agents.Debugger].panics = true

	out := h.orch.ProcessQuery(context.Background(), "explain this bug", "")

	assert.Equal(t, "[ConceptExplainer ERROR] quota exceeded", out.AgentResponses[agents.ConceptExplainer])
	assert.Equal(t, "[Debugger ERROR] responder exploded", out.AgentResponses[agents.Debugger])
	assert.Equal(t, "merged answer", out.FinalResponse)
	require.Len(t, out.Results, 2)
	assert.True(t, out.Results[0].Failed())
	assert.True(t, out.Results[1].Failed())
}

func TestSynthesisFailureIsTagged(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.synth.err = errors.New("deadline exceeded")

	out := h.orch.ProcessQuery(context.Background(), "explain this bug", "")

	assert.Equal(t, "[Orchestrator ERROR] deadline exceeded", out.FinalResponse)
	assert.Equal(t, 1, h.log.Len())
}

func TestPracticeRecordsExercise(t *testing.T) {
	h := newHarness(t, agents.Categories()...)

	h.orch.ProcessQuery(context.Background(), "practice quiz on a dictionary", "")

	ctx := h.sessions.Context()
	assert.Equal(t, []string{"practice quiz on a dictionary"}, ctx.ExercisesCompleted)
	assert.Contains(t, ctx.ConceptsCovered, "dictionary")
}

func TestSessionContextIsPassedToAgents(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.orch.ProcessQuery(context.Background(), "explain recursion", "")
	h.orch.ProcessQuery(context.Background(), "explain loops in detail", "")

	ctxs := h.agents[agents.ConceptExplainer].ctxs
	require.Len(t, ctxs, 2)

	var snap session.Session
	require.NoError(t, json.Unmarshal([]byte(ctxs[1]), &snap))
	assert.Equal(t, []string{"recursion"}, snap.ConceptsCovered, "context is snapshotted before the query runs")
}

func TestInteractionIsLoggedWithExcerpts(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	h.agents[agents.ConceptExplainer].reply = strings.Repeat("a", 1000)

	out := h.orch.ProcessQuery(context.Background(), "explain recursion", "")

	report := h.log.Report()
	require.Equal(t, 1, report.TotalInteractions)
	rec := report.Recent[0]
	assert.Equal(t, out.InteractionID, rec.ID)
	assert.Equal(t, "explain recursion", rec.Query)
	assert.Len(t, rec.AgentResponses[0].Response, 400)
	assert.Len(t, rec.FinalResponse, 800)
	assert.Len(t, out.FinalResponse, 1000)
}

func TestHooksRunAfterLogging(t *testing.T) {
	var seen []Outcome
	reg := prompts.NewPromptRegistry()
	prompts.RegisterBuiltins(reg)
	sessions := session.NewManager(nil)
	sessions.CreateSession("u", "")
	log := observability.NewInteractionLog(observability.DefaultLimits(), nil)

	o := New(sessions, log, NewSynthesizer(&stubResponder{name: "Orchestrator"}, reg, nil),
		WithHook(func(ctx context.Context, out Outcome) {
			assert.Equal(t, 1, log.Len())
			seen = append(seen, out)
		}))
	o.RegisterAgent(agents.GeneralChat, &stubResponder{name: "GeneralChat", reply: "hello!"})

	out := o.ProcessQuery(context.Background(), "hello", "")
	require.Len(t, seen, 1)
	assert.Equal(t, out.InteractionID, seen[0].InteractionID)
	assert.Equal(t, sessions.Context().ID, seen[0].SessionID)
}

func TestProcessQueryIsSerialized(t *testing.T) {
	h := newHarness(t, agents.Categories()...)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.orch.ProcessQuery(context.Background(), "explain recursion", "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, h.log.Len())
	assert.Equal(t, 5, h.sessions.Context().ProgressScore)
}

func TestOutcomeResponsesKeepOrder(t *testing.T) {
	h := newHarness(t, agents.Categories()...)
	out := h.orch.ProcessQuery(context.Background(), "explain why my refactor has a bug and write a practice exercise", "")

	var names []agents.Category
	for _, r := range out.Responses() {
		names = append(names, r.Category)
		assert.Equal(t, "answer from "+string(r.Category), r.Text)
	}
	assert.Equal(t, out.AgentsConsulted, names)
}

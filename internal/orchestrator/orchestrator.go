// Package orchestrator routes a query to the agents that should answer it,
// merges their answers and records the interaction.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/router"
	"github.com/ChamsBouzaiene/phoenix/internal/session"
)

// conceptVocabulary is scanned in responses and queries to track coverage.
var conceptVocabulary = []string{
	"function", "loop", "class", "list", "dictionary", "recursion",
	"generator", "decorator", "context manager", "exception", "module",
	"inheritance", "polymorphism", "encapsulation", "abstraction",
}

// Concepts returns the tracked concept vocabulary.
func Concepts() []string {
	return append([]string(nil), conceptVocabulary...)
}

// Outcome is the structured result of one processed query.
type Outcome struct {
	FinalResponse   string                     `json:"final_response"`
	AgentResponses  map[agents.Category]string `json:"agent_responses"`
	AgentsConsulted []agents.Category          `json:"agents_consulted"`
	Results         []agents.Result            `json:"-"`
	Synthesized     bool                       `json:"synthesized"`
	InteractionID   string                     `json:"interaction_id"`
	SessionID       string                     `json:"session_id,omitempty"`
}

// Responses returns the agent responses in dispatch order.
func (o Outcome) Responses() []Response {
	out := make([]Response, 0, len(o.AgentsConsulted))
	for _, c := range o.AgentsConsulted {
		out = append(out, Response{Category: c, Text: o.AgentResponses[c]})
	}
	return out
}

// Hook runs after a query has been fully processed and logged.
type Hook func(ctx context.Context, out Outcome)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry uses an existing agent registry.
func WithRegistry(r *agents.Registry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithHook adds a hook run after every query.
func WithHook(h Hook) Option {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, h) }
}

// WithProgressIncrement overrides the score awarded per new concept.
func WithProgressIncrement(n int) Option {
	return func(o *Orchestrator) { o.increment = n }
}

// Orchestrator owns the per-query pipeline. Queries are processed one at a
// time; agents are called sequentially in classification order.
type Orchestrator struct {
	mu        sync.Mutex
	registry  *agents.Registry
	sessions  *session.Manager
	log       *observability.InteractionLog
	synth     *Synthesizer
	hooks     []Hook
	increment int
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an orchestrator. The session manager and interaction log are
// owned by the caller and may be shared with read-only consumers.
func New(sessions *session.Manager, log *observability.InteractionLog, synth *Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  agents.NewRegistry(),
		sessions:  sessions,
		log:       log,
		synth:     synth,
		increment: session.DefaultProgressIncrement,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterAgent binds a responder to a category.
func (o *Orchestrator) RegisterAgent(c agents.Category, r agents.Responder) {
	o.registry.Register(c, r)
	o.logger.Info("registered agent", zap.String("category", string(c)))
}

// Registry returns the agent registry.
func (o *Orchestrator) Registry() *agents.Registry {
	return o.registry
}

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// Interactions returns the interaction log.
func (o *Orchestrator) Interactions() *observability.InteractionLog {
	return o.log
}

// ProcessQuery runs the full pipeline for one query. It never returns an
// error: agent failures are carried as tagged text in the outcome.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query, code string) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	sessionContext := o.sessions.ContextJSON()
	hasCode := strings.TrimSpace(code) != ""

	categories := router.Classify(query, hasCode)
	o.logger.Info("decided agents",
		zap.String("query", query),
		zap.Bool("has_code", hasCode),
		zap.Strings("agents", categoryNames(categories)))

	out := Outcome{
		AgentResponses:  make(map[agents.Category]string, len(categories)),
		AgentsConsulted: categories,
		Results:         make([]agents.Result, 0, len(categories)),
	}

	responses := make([]Response, 0, len(categories))
	for _, c := range categories {
		res := o.dispatch(ctx, c, query, code, hasCode, sessionContext)
		text := res.Display()
		out.Results = append(out.Results, res)
		out.AgentResponses[c] = text
		responses = append(responses, Response{Category: c, Text: text})
	}

	synthesis := o.synth.Synthesize(ctx, query, code, sessionContext, responses)
	out.FinalResponse = synthesis.Text
	out.Synthesized = synthesis.Synthesized

	o.updateSession(query, categories, responses)

	logged := make([]observability.AgentResponse, len(responses))
	for i, r := range responses {
		logged[i] = observability.AgentResponse{Agent: string(r.Category), Response: r.Text}
	}
	rec := o.log.Log(ctx, query, logged, out.FinalResponse)
	out.InteractionID = rec.ID
	out.SessionID = o.sessions.Context().ID

	for _, h := range o.hooks {
		h(ctx, out)
	}
	return out
}

// dispatch calls the responder for c, converting a missing responder or a
// panic into a failed result.
func (o *Orchestrator) dispatch(ctx context.Context, c agents.Category, query, code string, hasCode bool, sessionContext string) (res agents.Result) {
	name := string(c)

	responder, ok := o.registry.Lookup(c)
	if !ok {
		o.logger.Warn("agent not registered", zap.String("category", name))
		return agents.Failure(name, agents.ErrNotRegistered)
	}

	prompt := query
	if hasCode && c.AnalyzesCode() {
		prompt = fmt.Sprintf("User Query: %s\n\nCode to analyze:\n%s", query, code)
	}

	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("agent panicked", zap.String("category", name), zap.Any("panic", p))
			res = agents.Failure(name, fmt.Errorf("%v", p))
		}
	}()

	res = responder.Respond(ctx, prompt, sessionContext)
	res.Agent = name
	if res.Failed() {
		o.logger.Error("agent error", zap.String("category", name), zap.Error(res.Err))
	}
	return res
}

// updateSession records concepts, exercises and reviews. Pure general chat
// leaves the session untouched.
func (o *Orchestrator) updateSession(query string, categories []agents.Category, responses []Response) {
	if len(categories) == 1 && categories[0] == agents.GeneralChat {
		return
	}

	texts := make([]string, len(responses))
	for i, r := range responses {
		texts[i] = r.Text
	}
	joined := strings.ToLower(strings.Join(texts, " "))
	lowerQuery := strings.ToLower(query)

	for _, concept := range conceptVocabulary {
		if !strings.Contains(joined, concept) && !strings.Contains(lowerQuery, concept) {
			continue
		}
		if o.sessions.AppendConcept(concept) {
			o.sessions.AddProgress(o.increment)
		}
	}

	consulted := make(map[agents.Category]bool, len(categories))
	for _, c := range categories {
		consulted[c] = true
	}
	if consulted[agents.PracticeGenerator] {
		o.sessions.AddExercise(query)
	}
	if consulted[agents.CodeReviewer] || consulted[agents.Debugger] {
		o.sessions.AddCodeReview(session.CodeReview{Query: query, Timestamp: o.now()})
	}
}

func categoryNames(cs []agents.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

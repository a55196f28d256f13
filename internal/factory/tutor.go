// Package factory assembles a ready-to-use tutor from settings.
package factory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/agents"
	"github.com/ChamsBouzaiene/phoenix/internal/config"
	"github.com/ChamsBouzaiene/phoenix/internal/engine"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/orchestrator"
	"github.com/ChamsBouzaiene/phoenix/internal/prompts"
	"github.com/ChamsBouzaiene/phoenix/internal/session"
)

// ResumeLatest asks StartSession to continue the newest saved session.
const ResumeLatest = "latest"

// Tutor bundles the orchestrator with its durable stores.
type Tutor struct {
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Manager
	Interactions *observability.InteractionLog
	Store        *session.Store
	History      *observability.SQLiteSink
	Search       *observability.SearchIndex
	Prompts      *prompts.PromptRegistry
	Model        string

	settings *config.Settings
	logger   *zap.Logger
}

// BuildTutor wires every agent to client and opens the stores under
// settings.DataDir. Each query's session snapshot is saved after it is
// processed.
func BuildTutor(ctx context.Context, settings *config.Settings, client engine.LLMClient, model string, logger *zap.Logger, extraHooks ...orchestrator.Hook) (*Tutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(settings.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	registry := prompts.NewPromptRegistry()
	prompts.RegisterBuiltins(registry)
	if settings.PersonasFile != "" {
		n, err := prompts.Reload(registry, settings.PersonasFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load personas: %w", err)
		}
		logger.Info("persona overrides loaded", zap.Int("count", n), zap.String("path", settings.PersonasFile))
	}

	history, err := observability.NewSQLiteSink(ctx, settings.HistoryDBPath())
	if err != nil {
		return nil, err
	}
	search, err := observability.NewSearchIndex(settings.SearchIndexPath(), logger.Named("search"))
	if err != nil {
		history.Close()
		return nil, err
	}

	gen := settings.Generation
	gen.Model = model
	generator := agents.NewLLMGenerator(client, gen, logger.Named("llm"))

	t := &Tutor{
		Sessions:     session.NewManager(logger.Named("session")),
		Interactions: observability.NewInteractionLog(settings.Limits, logger.Named("interactions"), history, search),
		Store:        session.NewStore(settings.DataDir),
		History:      history,
		Search:       search,
		Prompts:      registry,
		Model:        model,
		settings:     settings,
		logger:       logger,
	}

	synth := orchestrator.NewSynthesizer(
		agents.NewPersonaResponder(agents.OrchestratorPersona, generator, registry, logger.Named("agent")),
		registry, logger.Named("synthesizer"))

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithRegistry(agents.NewDefaultRegistry(generator, registry, logger.Named("agent"))),
		orchestrator.WithHook(t.persistSession),
	}
	for _, h := range extraHooks {
		opts = append(opts, orchestrator.WithHook(h))
	}
	t.Orchestrator = orchestrator.New(t.Sessions, t.Interactions, synth, opts...)

	return t, nil
}

// StartSession restores resumeID (or the newest session for ResumeLatest)
// and otherwise creates a fresh one. It returns the active session ID.
func (t *Tutor) StartSession(resumeID string) (string, error) {
	userID := t.settings.UserID
	switch resumeID {
	case "":
	case ResumeLatest:
		s, err := t.Store.Latest(userID)
		if err == nil {
			t.Sessions.Restore(s)
			return s.ID, nil
		}
		if !errors.Is(err, session.ErrNoSessions) {
			return "", err
		}
		t.logger.Info("no saved session to resume, starting a new one", zap.String("user_id", userID))
	default:
		s, err := t.Store.Load(resumeID, userID)
		if err != nil {
			return "", fmt.Errorf("failed to resume session %s: %w", resumeID, err)
		}
		t.Sessions.Restore(s)
		return s.ID, nil
	}

	id := t.Sessions.CreateSession(userID, t.settings.SkillLevel)
	if err := t.Store.Save(t.Sessions.Context()); err != nil {
		t.logger.Warn("failed to save session", zap.Error(err))
	}
	return id, nil
}

// WatchPersonas hot-reloads the persona override file until ctx is done.
// It returns immediately when no override file is configured.
func (t *Tutor) WatchPersonas(ctx context.Context) error {
	if t.settings.PersonasFile == "" {
		return nil
	}
	w := prompts.NewWatcher(t.Prompts, t.settings.PersonasFile, t.logger.Named("personas"))
	return w.Run(ctx)
}

// Close releases the durable stores.
func (t *Tutor) Close() error {
	return errors.Join(t.Search.Close(), t.History.Close())
}

func (t *Tutor) persistSession(ctx context.Context, out orchestrator.Outcome) {
	if !t.Sessions.Active() {
		return
	}
	if err := t.Store.Save(t.Sessions.Context()); err != nil {
		t.logger.Warn("failed to save session", zap.String("session_id", out.SessionID), zap.Error(err))
	}
}

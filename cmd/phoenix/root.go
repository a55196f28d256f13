package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/config"
	"github.com/ChamsBouzaiene/phoenix/internal/engine"
	"github.com/ChamsBouzaiene/phoenix/internal/factory"
	"github.com/ChamsBouzaiene/phoenix/internal/logging"
	"github.com/ChamsBouzaiene/phoenix/internal/orchestrator"
	"github.com/ChamsBouzaiene/phoenix/internal/providers"
)

var (
	version = "dev"
	commit  = "unknown"
)

// app carries state shared by all subcommands.
type app struct {
	settings *config.Settings
	logger   *zap.Logger

	// newClient is swapped out in tests.
	newClient func(ctx context.Context) (engine.LLMClient, string, error)
	// configDir overrides the user config directory when set.
	configDir string

	logLevel string
	logFile  string
	dataDir  string
	userID   string
	skill    string
	personas string
	resume   string
}

func newApp() *app {
	return &app{newClient: providers.NewLLMClientFromEnv}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "phoenix",
		Short: "Phoenix - a multi-agent programming tutor",
		Long: `Phoenix routes each question to specialized tutoring agents (concept
explainer, code reviewer, debugger, practice generator, code generator, general
chat), merges their answers and tracks your learning progress.

Run without arguments to start the interactive chat.

Quick Start:
  phoenix                                  # Chat in the terminal
  phoenix ask "explain recursion"          # One-shot question
  phoenix ask "fix this" --code-file a.py  # Debug a file
  phoenix serve                            # HTTP API on :8080
  phoenix history search recursion         # Search past answers`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, a)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	pf.StringVar(&a.logFile, "log-file", "", "Log destination: a file path or stderr")
	pf.StringVar(&a.dataDir, "data-dir", "", "Directory for sessions and interaction history")
	pf.StringVar(&a.userID, "user", "", "Learner id sessions are stored under")
	pf.StringVar(&a.skill, "skill", "", "Skill level for new sessions: beginner, intermediate, advanced")
	pf.StringVar(&a.personas, "personas", "", "YAML file overriding agent personas (hot-reloaded)")
	pf.StringVar(&a.resume, "resume", "", `Resume a saved session by id, or "latest"`)

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCmd(a),
		newAskCmd(a),
		newServeCmd(a),
		newReportCmd(a),
		newHistoryCmd(a),
		newSessionsCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) configManager() (*config.Manager, error) {
	if a.configDir != "" {
		return config.NewManagerAt(a.configDir), nil
	}
	return config.NewManager()
}

// setup resolves settings and the logger. Interactive commands log to a file
// in the data dir by default so the terminal stays readable.
func (a *app) setup(logToFile bool) error {
	mgr, err := a.configManager()
	if err != nil {
		return err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}
	config.ApplyToEnv(cfg)

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		settings.DataDir = a.dataDir
	}
	if a.userID != "" {
		settings.UserID = a.userID
	}
	if a.skill != "" {
		settings.SkillLevel = a.skill
	}
	if a.personas != "" {
		settings.PersonasFile = a.personas
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}
	if a.logFile != "" {
		settings.LogFile = a.logFile
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	output := settings.LogFile
	if output == "" && logToFile {
		output = settings.DefaultLogFile()
	}
	if output != "" && output != "stderr" {
		if err := ensureDir(settings.DataDir); err != nil {
			return err
		}
	}

	logger, err := logging.New(settings.LogLevel, settings.LogJSON, output)
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = logger
	return nil
}

// buildTutor creates the tutor and starts (or resumes) the session.
func (a *app) buildTutor(ctx context.Context, hooks ...orchestrator.Hook) (*factory.Tutor, error) {
	client, model, err := a.newClient(ctx)
	if err != nil {
		return nil, err
	}
	tutor, err := factory.BuildTutor(ctx, a.settings, client, model, a.logger, hooks...)
	if err != nil {
		return nil, err
	}
	if _, err := tutor.StartSession(a.resume); err != nil {
		tutor.Close()
		return nil, err
	}
	return tutor, nil
}

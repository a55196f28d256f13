package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the persistent configuration file",
	}
	cmd.AddCommand(newConfigPathCmd(a), newConfigSetCmd(a))
	return cmd
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.configManager()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mgr.GetConfigPath())
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	var (
		provider string
		apiKey   string
		model    string
		baseURL  string
		user     string
		skill    string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save provider and learner preferences",
		Example: `  phoenix config set --provider gemini --api-key $GOOGLE_API_KEY
  phoenix config set --default-user ada --default-skill intermediate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.configManager()
			if err != nil {
				return err
			}
			cfg, err := mgr.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("provider") {
				cfg.LLMProvider = provider
			}
			if flags.Changed("api-key") {
				cfg.APIKey = apiKey
			}
			if flags.Changed("model") {
				cfg.Model = model
			}
			if flags.Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if flags.Changed("default-user") {
				cfg.UserID = user
			}
			if flags.Changed("default-skill") {
				cfg.SkillLevel = skill
			}

			if err := mgr.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", mgr.GetConfigPath())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&provider, "provider", "", "LLM provider: gemini, openai, anthropic, ollama")
	f.StringVar(&apiKey, "api-key", "", "API key for the provider")
	f.StringVar(&model, "model", "", "Model name")
	f.StringVar(&baseURL, "base-url", "", "Base URL for OpenAI-compatible endpoints")
	f.StringVar(&user, "default-user", "", "Default learner id")
	f.StringVar(&skill, "default-skill", "", "Default skill level: beginner, intermediate, advanced")
	return cmd
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

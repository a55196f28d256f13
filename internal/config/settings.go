// Package config loads phoenix settings from config.json and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ChamsBouzaiene/phoenix/internal/engine"
	"github.com/ChamsBouzaiene/phoenix/internal/observability"
	"github.com/ChamsBouzaiene/phoenix/internal/session"
)

// Environment variables read by Load.
const (
	EnvUserID          = "PHOENIX_USER_ID"
	EnvSkillLevel      = "PHOENIX_SKILL_LEVEL"
	EnvDataDir         = "PHOENIX_DATA_DIR"
	EnvPersonas        = "PHOENIX_PERSONAS"
	EnvLogLevel        = "PHOENIX_LOG_LEVEL"
	EnvLogJSON         = "PHOENIX_LOG_JSON"
	EnvLogFile         = "PHOENIX_LOG_FILE"
	EnvTemperature     = "PHOENIX_TEMPERATURE"
	EnvTopP            = "PHOENIX_TOP_P"
	EnvMaxOutputTokens = "PHOENIX_MAX_OUTPUT_TOKENS"
	EnvStream          = "PHOENIX_STREAM"
	EnvMaxRetries      = "PHOENIX_MAX_RETRIES"
	EnvAgentExcerpt    = "PHOENIX_AGENT_EXCERPT"
	EnvFinalExcerpt    = "PHOENIX_FINAL_EXCERPT"
	EnvAddr            = "PHOENIX_ADDR"
)

// DefaultUserID is used when no user is configured.
const DefaultUserID = "student"

// Settings is the resolved runtime configuration.
type Settings struct {
	UserID       string
	SkillLevel   string
	DataDir      string
	PersonasFile string
	LogLevel     string
	LogJSON      bool
	LogFile      string // empty: chosen by the command
	Addr         string
	Generation   engine.GenerationConfig
	Limits       observability.Limits
}

// Load reads settings from the environment, falling back to defaults.
func Load() (*Settings, error) {
	gen := engine.DefaultGenerationConfig()
	gen.Temperature = getEnvFloat32(EnvTemperature, gen.Temperature)
	gen.TopP = getEnvFloat32(EnvTopP, gen.TopP)
	gen.MaxOutputTokens = getEnvInt(EnvMaxOutputTokens, gen.MaxOutputTokens)
	gen.Stream = getEnvBool(EnvStream, gen.Stream)
	gen.Retry.LLMPolicy.MaxRetries = getEnvInt(EnvMaxRetries, gen.Retry.LLMPolicy.MaxRetries)

	s := &Settings{
		UserID:       getEnv(EnvUserID, DefaultUserID),
		SkillLevel:   getEnv(EnvSkillLevel, session.DefaultSkillLevel),
		DataDir:      getEnv(EnvDataDir, defaultDataDir()),
		PersonasFile: getEnv(EnvPersonas, ""),
		LogLevel:     getEnv(EnvLogLevel, "info"),
		LogJSON:      getEnvBool(EnvLogJSON, false),
		LogFile:      getEnv(EnvLogFile, ""),
		Addr:         getEnv(EnvAddr, ":8080"),
		Generation:   gen,
		Limits: observability.Limits{
			AgentExcerpt: getEnvInt(EnvAgentExcerpt, observability.DefaultAgentExcerpt),
			FinalExcerpt: getEnvInt(EnvFinalExcerpt, observability.DefaultFinalExcerpt),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// Validate checks ranges that would otherwise fail at the first model call.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("%s cannot be empty", EnvUserID)
	}
	if strings.ContainsAny(s.UserID, `/\`) {
		return fmt.Errorf("%s must not contain path separators", EnvUserID)
	}
	if s.DataDir == "" {
		return fmt.Errorf("%s cannot be empty", EnvDataDir)
	}
	if s.Generation.Temperature < 0 || s.Generation.Temperature > 2 {
		return fmt.Errorf("%s must be within [0, 2]", EnvTemperature)
	}
	if s.Generation.TopP <= 0 || s.Generation.TopP > 1 {
		return fmt.Errorf("%s must be within (0, 1]", EnvTopP)
	}
	if s.Generation.MaxOutputTokens <= 0 {
		return fmt.Errorf("%s must be > 0", EnvMaxOutputTokens)
	}
	if s.Generation.Retry.LLMPolicy.MaxRetries < 0 {
		return fmt.Errorf("%s must be >= 0", EnvMaxRetries)
	}
	if s.Limits.AgentExcerpt < 0 || s.Limits.FinalExcerpt < 0 {
		return fmt.Errorf("excerpt limits must be >= 0")
	}
	return nil
}

// HistoryDBPath is the SQLite interaction history.
func (s *Settings) HistoryDBPath() string {
	return filepath.Join(s.DataDir, "history.db")
}

// DefaultLogFile is the interactive log file inside the data dir.
func (s *Settings) DefaultLogFile() string {
	return filepath.Join(s.DataDir, "phoenix_agent.log")
}

// SearchIndexPath is the bleve index of past interactions.
func (s *Settings) SearchIndexPath() string {
	return filepath.Join(s.DataDir, "history.bleve")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "phoenix")
	}
	return ".phoenix"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Config holds the user's persistent preferences. Unset fields leave the
// environment untouched.
type Config struct {
	LLMProvider     string   `json:"llm_provider,omitempty"` // gemini, openai, anthropic, ollama
	APIKey          string   `json:"api_key,omitempty"`
	Model           string   `json:"model,omitempty"`
	BaseURL         string   `json:"base_url,omitempty"` // OpenAI-compatible endpoints only
	UserID          string   `json:"user_id,omitempty"`
	SkillLevel      string   `json:"skill_level,omitempty"`
	DataDir         string   `json:"data_dir,omitempty"`
	PersonasFile    string   `json:"personas_file,omitempty"`
	LogLevel        string   `json:"log_level,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"`
	Stream          *bool    `json:"stream,omitempty"`
}

// configSchema constrains config.json before it is decoded.
const configSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "llm_provider":      {"type": "string", "enum": ["gemini", "openai", "anthropic", "ollama"]},
    "api_key":           {"type": "string"},
    "model":             {"type": "string"},
    "base_url":          {"type": "string"},
    "user_id":           {"type": "string", "pattern": "^[^/\\\\]*$"},
    "skill_level":       {"type": "string", "enum": ["beginner", "intermediate", "advanced"]},
    "data_dir":          {"type": "string"},
    "personas_file":     {"type": "string"},
    "log_level":         {"type": "string", "enum": ["debug", "info", "warn", "error", "off"]},
    "temperature":       {"type": "number", "minimum": 0, "maximum": 2},
    "top_p":             {"type": "number", "minimum": 0, "maximum": 1},
    "max_output_tokens": {"type": "integer", "minimum": 1},
    "stream":            {"type": "boolean"}
  }
}`

// ValidationError lists the schema violations found in a config file.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Path, strings.Join(e.Errors, "; "))
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a manager rooted at the user config directory.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return NewManagerAt(filepath.Join(configDir, "phoenix")), nil
}

// NewManagerAt creates a manager that keeps config.json in dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads and validates the configuration.
// If the file does not exist, it returns an empty Config and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := validate(path, data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := validate(m.GetConfigPath(), data); err != nil {
		return err
	}

	// 0600: the file may hold an API key
	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return err == nil
}

func validate(path string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &ValidationError{Path: path, Errors: msgs}
}

// ApplyToEnv exports the config into the environment variables read by the
// provider factory and Load. Config values win over the shell, so a saved
// choice is not shadowed by a stale .env entry.
func ApplyToEnv(cfg *Config) {
	set := func(key, value string) {
		if value != "" {
			os.Setenv(key, value)
		}
	}

	set("LLM_PROVIDER", cfg.LLMProvider)
	switch cfg.LLMProvider {
	case "gemini":
		set("GEMINI_API_KEY", cfg.APIKey)
		set("GEMINI_MODEL", cfg.Model)
	case "openai":
		set("OPENAI_API_KEY", cfg.APIKey)
		set("OPENAI_MODEL", cfg.Model)
		set("OPENAI_BASE_URL", cfg.BaseURL)
	case "anthropic":
		set("ANTHROPIC_API_KEY", cfg.APIKey)
		set("ANTHROPIC_MODEL", cfg.Model)
	case "ollama":
		set("OLLAMA_API_KEY", cfg.APIKey)
		set("OLLAMA_MODEL", cfg.Model)
		set("OLLAMA_BASE_URL", cfg.BaseURL)
	}

	set(EnvUserID, cfg.UserID)
	set(EnvSkillLevel, cfg.SkillLevel)
	set(EnvDataDir, cfg.DataDir)
	set(EnvPersonas, cfg.PersonasFile)
	set(EnvLogLevel, cfg.LogLevel)
	if cfg.Temperature != nil {
		set(EnvTemperature, strconv.FormatFloat(*cfg.Temperature, 'f', -1, 64))
	}
	if cfg.TopP != nil {
		set(EnvTopP, strconv.FormatFloat(*cfg.TopP, 'f', -1, 64))
	}
	if cfg.MaxOutputTokens > 0 {
		set(EnvMaxOutputTokens, strconv.Itoa(cfg.MaxOutputTokens))
	}
	if cfg.Stream != nil {
		set(EnvStream, strconv.FormatBool(*cfg.Stream))
	}
}

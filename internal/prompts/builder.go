package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// PromptBuilder helps compose prompts from fragments and variables.
type PromptBuilder struct {
	basePrompt *Prompt
	fragments  []string
	variables  map[string]string
}

// NewPromptBuilder creates a new prompt builder based on a registered prompt.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	basePrompt, err := registry.Get(id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}
	return newBuilder(basePrompt), nil
}

// NewLatestPromptBuilder creates a builder from the latest version of a prompt.
func NewLatestPromptBuilder(registry *PromptRegistry, id string) (*PromptBuilder, error) {
	basePrompt, err := registry.GetLatest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}
	return newBuilder(basePrompt), nil
}

func newBuilder(base *Prompt) *PromptBuilder {
	return &PromptBuilder{
		basePrompt: base,
		fragments:  []string{base.Content},
		variables:  make(map[string]string),
	}
}

// AddFragment appends a fragment to the prompt.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	b.fragments = append(b.fragments, text)
	return b
}

// SetVariable sets a variable for template substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build constructs the final prompt string.
// Placeholders are {{key}}. Substitution is a single pass, so a value that
// itself contains "{{...}}" is never expanded again.
func (b *PromptBuilder) Build() (string, error) {
	result := strings.Join(b.fragments, "\n\n")

	keys := make([]string, 0, len(b.variables))
	for key := range b.variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("{{%s}}", key), b.variables[key])
	}

	return strings.NewReplacer(pairs...).Replace(result), nil
}

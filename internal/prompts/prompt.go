package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the first version of prompts.
	PromptV1 PromptVersion = "1.0.0"
	// PromptV2 is the second version (for future use).
	PromptV2 PromptVersion = "2.0.0"
)

// Prompt represents a versioned prompt with metadata.
type Prompt struct {
	ID          string        `yaml:"id"`          // Unique identifier (e.g., "ConceptExplainer", "responder_template")
	Version     PromptVersion `yaml:"version"`     // Version of this prompt
	Content     string        `yaml:"content"`     // The actual prompt text
	Description string        `yaml:"description"` // Human-readable description
	Tags        []string      `yaml:"tags"`        // Tags for categorization (e.g., ["persona", "tutor"])
	Deprecated  bool          `yaml:"deprecated"`  // True if this version is deprecated
}

package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// OverrideFile is the on-disk format for persona overrides:
//
//	prompts:
//	  - id: ConceptExplainer
//	    content: |
//	      You are ConceptExplainer: ...
type OverrideFile struct {
	Prompts []*Prompt `yaml:"prompts"`
}

// LoadOverrides parses an override file. Entries without a version default to
// PromptV1 so they replace the bundled prompt of the same ID.
func LoadOverrides(path string) ([]*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt overrides: %w", err)
	}

	var file OverrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompt overrides %s: %w", path, err)
	}

	for i, p := range file.Prompts {
		if p == nil || p.ID == "" {
			return nil, fmt.Errorf("prompt override #%d has no id", i+1)
		}
		if p.Content == "" {
			return nil, fmt.Errorf("prompt override %q has empty content", p.ID)
		}
		if p.Version == "" {
			p.Version = PromptV1
		}
	}
	return file.Prompts, nil
}

// Reload resets the registry to the bundled prompts and applies the override
// file on top. The swap is atomic for concurrent readers. A missing file is
// not an error.
func Reload(r *PromptRegistry, path string) (int, error) {
	var overrides []*Prompt
	if path != "" {
		var err error
		overrides, err = LoadOverrides(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
	}

	r.Replace(append(builtins(), overrides...))
	return len(overrides), nil
}

// Package engine holds the provider-agnostic LLM plumbing.
// This file contains token counting interfaces and implementations.

package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Tokenizer provides token counting for text.
// Different models use different tokenization schemes, so the model name is required.
type Tokenizer interface {
	CountTokens(text string, model string) (int, error)
}

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English/code.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	// (characters / 4) + (whitespace / 6)
	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}

	return estimated
}

// DefaultTokenizer uses estimation as a fallback when no specific tokenizer is available.
type DefaultTokenizer struct{}

// CountTokens implements Tokenizer using estimation.
func (t DefaultTokenizer) CountTokens(text string, model string) (int, error) {
	return EstimateTokens(text), nil
}

// TikTokenTokenizer counts tokens with the BPE encoding used by OpenAI models.
type TikTokenTokenizer struct {
	encoding tokenizer.Encoding
	once     sync.Once
	codec    tokenizer.Codec
	err      error
}

// NewTikTokenTokenizer creates a tokenizer for the given encoding.
func NewTikTokenTokenizer(encoding tokenizer.Encoding) *TikTokenTokenizer {
	return &TikTokenTokenizer{encoding: encoding}
}

// CountTokens implements Tokenizer.
func (t *TikTokenTokenizer) CountTokens(text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	t.once.Do(func() {
		t.codec, t.err = tokenizer.Get(t.encoding)
	})
	if t.err != nil {
		return 0, fmt.Errorf("load %s encoding: %w", t.encoding, t.err)
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return len(ids), nil
}

var (
	cl100k = NewTikTokenTokenizer(tokenizer.Cl100kBase)
	o200k  = NewTikTokenTokenizer(tokenizer.O200kBase)
)

// CountTokensForMessages counts tokens for a slice of messages.
// It includes formatting overhead (role names, separators) in the count.
func CountTokensForMessages(tok Tokenizer, messages []ChatMessage, model string) (int, error) {
	total := 0

	for _, msg := range messages {
		roleTokens, err := tok.CountTokens(string(msg.Role), model)
		if err != nil {
			return 0, fmt.Errorf("failed to count role tokens: %w", err)
		}
		total += roleTokens

		contentTokens, err := tok.CountTokens(msg.Content, model)
		if err != nil {
			return 0, fmt.Errorf("failed to count content tokens: %w", err)
		}
		total += contentTokens

		// ~4 tokens of formatting per message
		total += 4
	}

	return total, nil
}

// GetTokenizerForModel returns an appropriate tokenizer for the given model.
// OpenAI models get their real BPE encoding; everything else is estimated.
func GetTokenizerForModel(model string) Tokenizer {
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return o200k
	case strings.HasPrefix(model, "gpt-"):
		return cl100k
	default:
		return DefaultTokenizer{}
	}
}

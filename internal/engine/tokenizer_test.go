package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "short word", text: "hello", want: 1},
		{name: "sentence", text: "hello world this is a test", want: 6},
		{name: "code snippet", text: "func main() { fmt.Println(\"hello\") }", want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}

func TestCountTokensForMessages(t *testing.T) {
	messages := []ChatMessage{
		{Role: RoleSystem, Content: "You are ConceptExplainer."},
		{Role: RoleUser, Content: "explain recursion"},
	}

	got, err := CountTokensForMessages(DefaultTokenizer{}, messages, "gemini-2.5-flash")
	require.NoError(t, err)
	// two messages carry at least 8 tokens of overhead on top of content
	assert.GreaterOrEqual(t, got, 10)
}

func TestGetTokenizerForModel(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		tiktoken bool
	}{
		{"openai gpt-4", "gpt-4", true},
		{"openai gpt-4o", "gpt-4o-mini", true},
		{"gemini", "gemini-2.5-flash", false},
		{"anthropic", "claude-3-sonnet-20240229", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := GetTokenizerForModel(tt.model)
			require.NotNil(t, tok)

			_, isTik := tok.(*TikTokenTokenizer)
			assert.Equal(t, tt.tiktoken, isTik)

			count, err := tok.CountTokens("explain recursion in python", tt.model)
			require.NoError(t, err)
			assert.Positive(t, count)
		})
	}
}

func TestTikTokenTokenizer_Empty(t *testing.T) {
	count, err := NewTikTokenTokenizer("cl100k_base").CountTokens("", "gpt-4")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo wörld", 4, "héll"},
		{"anything", 0, "anything"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateRunes(tt.in, tt.n), "TruncateRunes(%q, %d)", tt.in, tt.n)
	}
}

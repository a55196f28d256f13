package engine

import (
	"context"
	"fmt"
)

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is the provider-agnostic message we pass around.
type ChatMessage struct {
	Role    MessageRole // Role of the message sender
	Content string      // Message content
}

// Validate checks if the ChatMessage is valid.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	return nil
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// LLMResponse is a normalized result of one chat call.
type LLMResponse struct {
	Assistant    ChatMessage
	Usage        Usage
	FinishReason string // "stop" | "length" | "content_filter"
}

// LLMClient abstracts the chosen SDK (Gemini, OpenAI, Anthropic, ...).
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []ChatMessage, opts ChatOptions) (LLMResponse, error)
	// Stream delivers text deltas as they arrive. The event channel is closed
	// when the stream ends; at most one error is sent on the error channel.
	Stream(ctx context.Context, model string, messages []ChatMessage, opts ChatOptions) (<-chan StreamEvent, <-chan error)
}

// ChatOptions keeps knobs forwarded to the SDK.
type ChatOptions struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int
	RetryConfig     *RetryConfig // nil = DefaultRetryConfig
	Stream          bool         // opt-in streaming
}

// StreamEvent represents a streaming event from the LLM.
type StreamEvent struct {
	Type  string // "text_delta" | "usage"
	Text  string // for text_delta
	Usage Usage  // for usage
}

package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/phoenix/internal/engine"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GEMINI_MODEL is unset.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements engine.LLMClient on the native Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: modelName}, nil
}

// buildRequest maps engine messages onto genai contents. System messages
// become the system instruction.
func (c *GeminiClient) buildRequest(modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (string, []*genai.Content, *genai.GenerateContentConfig) {
	if modelName == "" {
		modelName = c.model
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			system = append(system, msg.Content)
		case engine.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.TopP > 0 {
		config.TopP = genai.Ptr(opts.TopP)
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	return modelName, contents, config
}

// Chat implements engine.LLMClient.Chat.
func (c *GeminiClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	model, contents, config := c.buildRequest(modelName, messages, opts)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:    engine.RoleAssistant,
			Content: resp.Text(),
		},
		Usage:        geminiUsage(resp),
		FinishReason: geminiFinishReason(resp),
	}, nil
}

// Stream implements engine.LLMClient.Stream.
func (c *GeminiClient) Stream(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	eventCh := make(chan engine.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		model, contents, config := c.buildRequest(modelName, messages, opts)

		var usage engine.Usage
		for resp, err := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				httpStatus, retryAfter := extractErrorMetadata(err)
				errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
				return
			}
			if text := resp.Text(); text != "" {
				if !send(ctx, eventCh, engine.StreamEvent{Type: "text_delta", Text: text}) {
					return
				}
			}
			if u := geminiUsage(resp); u.Total > 0 {
				usage = u
			}
		}

		if usage.Total > 0 {
			send(ctx, eventCh, engine.StreamEvent{Type: "usage", Usage: usage})
		}
	}()

	return eventCh, errCh
}

func geminiUsage(resp *genai.GenerateContentResponse) engine.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return engine.Usage{}
	}
	return engine.Usage{
		Prompt:     int(resp.UsageMetadata.PromptTokenCount),
		Completion: int(resp.UsageMetadata.CandidatesTokenCount),
		Total:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

func geminiFinishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return "stop"
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		return "length"
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return "content_filter"
	}
	return "stop"
}

package providers

import (
	"context"
	"fmt"

	"github.com/ChamsBouzaiene/phoenix/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements engine.LLMClient by calling the Anthropic SDK directly.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client for the engine.
func NewAnthropicClient(apiKey, modelName string) (*AnthropicClient, error) {
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		model:  modelName,
	}, nil
}

// buildRequest splits system messages out, since Anthropic takes them separately.
func (c *AnthropicClient) buildRequest(modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) anthropic.MessagesRequest {
	if modelName == "" {
		modelName = c.model
	}

	var systemParts []anthropic.MessageSystemPart
	var anthropicMsgs []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{
				Type: "text",
				Text: msg.Content,
			})
		case engine.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		default:
			anthropicMsgs = append(anthropicMsgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		}
	}

	maxTokens := 4096
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}

	temperature := float32(0.35)
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(modelName),
		Messages:    anthropicMsgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if opts.TopP > 0 {
		topP := opts.TopP
		req.TopP = &topP
	}
	if len(systemParts) > 0 {
		req.MultiSystem = systemParts
	}
	return req
}

// Chat implements engine.LLMClient.Chat.
func (c *AnthropicClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	req := c.buildRequest(modelName, messages, opts)

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var textContent string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			textContent += *block.Text
		}
	}

	finishReason := "stop"
	switch resp.StopReason {
	case "max_tokens":
		finishReason = "length"
	case "content_filtered":
		finishReason = "content_filter"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:    engine.RoleAssistant,
			Content: textContent,
		},
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason,
	}, nil
}

// Stream implements engine.LLMClient.Stream.
// The SDK streams through callbacks, which are adapted to channels here.
func (c *AnthropicClient) Stream(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	eventCh := make(chan engine.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		req := anthropic.MessagesStreamRequest{
			MessagesRequest: c.buildRequest(modelName, messages, opts),
		}

		var streamErr error
		req.OnError = func(errResp anthropic.ErrorResponse) {
			if streamErr == nil {
				streamErr = fmt.Errorf("anthropic streaming error: %s", errResp.Error.Message)
			}
		}

		req.OnContentBlockDelta = func(delta anthropic.MessagesEventContentBlockDeltaData) {
			if delta.Delta.Type == "text_delta" && delta.Delta.Text != nil {
				send(ctx, eventCh, engine.StreamEvent{Type: "text_delta", Text: *delta.Delta.Text})
			}
		}

		resp, err := c.client.CreateMessagesStream(ctx, req)
		if err != nil {
			httpStatus, retryAfter := extractErrorMetadata(err)
			errCh <- engine.WrapLLMError(err, httpStatus, retryAfter)
			return
		}
		if streamErr != nil {
			errCh <- engine.WrapLLMError(streamErr, 0, "")
			return
		}

		if resp.Usage.InputTokens > 0 {
			send(ctx, eventCh, engine.StreamEvent{
				Type: "usage",
				Usage: engine.Usage{
					Prompt:     resp.Usage.InputTokens,
					Completion: resp.Usage.OutputTokens,
					Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
				},
			})
		}
	}()

	return eventCh, errCh
}

package engine

import "time"

// GenerationConfig holds the sampling knobs shared by every responder.
type GenerationConfig struct {
	Model           string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int
	Stream          bool
	Retry           RetryConfig
}

// DefaultGenerationConfig mirrors the tutor's historical Gemini settings.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.35,
		TopP:            0.9,
		MaxOutputTokens: 4096,
		Stream:          true,
		Retry:           DefaultRetryConfig(),
	}
}

// ChatOptions converts the config into per-call options.
func (c GenerationConfig) ChatOptions() ChatOptions {
	retry := c.Retry
	return ChatOptions{
		Temperature:     c.Temperature,
		TopP:            c.TopP,
		MaxOutputTokens: c.MaxOutputTokens,
		Stream:          c.Stream,
		RetryConfig:     &retry,
	}
}

// DefaultRetryConfig returns the default LLM retry policy.
// Queries are single-shot: MaxRetries stays at zero unless configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		LLMPolicy: RetryPolicy{
			MaxRetries:   0,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

package ai

import (
	"context"
)

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	Thinking      string   // Extended thinking mode configuration
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
// Higher values (e.g., 1.0) produce more random outputs, while lower values
// (e.g., 0.2) make outputs more focused and deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithThinking returns a GenerateOption that enables extended thinking mode.
func WithThinking(thinking string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Thinking = thinking
	}
}

// ApplyOptions folds opts over base and returns the result.
func ApplyOptions(base GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, o := range opts {
		o(&base)
	}
	return base
}

// TextGenerator turns a single prompt into a single completion.
type TextGenerator interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
}

// TextGeneratorFunc adapts a plain function to the TextGenerator interface.
type TextGeneratorFunc func(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

// GenerateCompletion calls f.
func (f TextGeneratorFunc) GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	return f(ctx, prompt, opts...)
}

// Embedder produces a fixed-size vector for a piece of text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// Client is implemented by every model backend.
type Client interface {
	TextGenerator
	Embedder

	LoadModel(ctx context.Context, opts ...GenerateOption) error
	ResetMetrics()
	GetMetrics() ModelMetrics
}

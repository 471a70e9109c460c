package ollama

import (
	"context"
	"strings"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultContextSize = 4096
	responseReserve    = 200
)

// contextSize estimates how large num_ctx has to be for prompt plus a
// short answer. It returns 0 when the model default is large enough.
func contextSize(prompt string) int {
	var tokens int
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		logger.Debug("Falling back to byte based token estimate", "err", err)
		tokens = len(prompt) / 4
	} else {
		tokens = len(enc.Encode(prompt, nil, nil))
	}
	tokens += responseReserve
	if tokens <= defaultContextSize {
		return 0
	}
	return tokens
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *OllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.Thinking != "" {
		req.Think = &api.ThinkValue{
			Value: options.Thinking,
		}
	}

	if n := contextSize(strings.Join(options.SystemPrompts, "\n") + prompt); n > 0 {
		req.Options["num_ctx"] = n
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	return final.Message.Content, nil
}

// LoadModel preloads a model into memory to reduce latency on subsequent requests.
func (c *OllamaClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.chatModel}, opts...)

	req := &api.ChatRequest{
		Model: options.Model,
	}

	return c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		return nil
	})
}

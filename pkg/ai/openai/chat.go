package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

var errNoChatClient = errors.New("chat endpoint is not configured")

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
//
// Example:
//
//	resp, err := client.GenerateCompletion(ctx, "Annotate this dataset...")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(resp)
func (c *OpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	if c.ChatClient == nil {
		return "", errNoChatClient
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}

	if options.Thinking != "" {
		// reasoning models on api.openai.com only accept temperature 1
		if c.chatURL == "" {
			body.Temperature = openai.Float(1.0)
		}
		body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	logger.Debug("Chat completion finished",
		"model", options.Model,
		"finish_reason", response.Choices[0].FinishReason,
		"duration_ms", duration,
	)

	return response.Choices[0].Message.Content, nil
}

// LoadModel is a no-op for OpenAI as models are loaded on-demand.
func (c *OpenAIClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	return nil
}

package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama.
//
// Blank input yields a zero vector without calling the server.
func (c *OllamaClient) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, c.embeddingDim), nil
	}

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(ctx, req)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response from model %q", c.embeddingModel)
	}
	return ai.FitDimensions(res.Embeddings[0], c.embeddingDim), nil
}

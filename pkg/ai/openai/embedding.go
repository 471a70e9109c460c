package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

var errNoEmbeddingClient = errors.New("embedding endpoint is not configured")

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model. Blank input yields a zero vector
// without calling the API. The result always has the configured dimension
// when one is set.
func (c *OpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, c.embeddingDim), nil
	}
	if c.EmbeddingClient == nil {
		return nil, errNoEmbeddingClient
	}

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(string(input))},
		Model: c.embeddingModel,
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(ctx, body)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(response.Data))
	}

	vec := make([]float32, len(response.Data[0].Embedding))
	for i, v := range response.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return ai.FitDimensions(vec, c.embeddingDim), nil
}

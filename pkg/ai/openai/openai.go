package openai

import (
	"sync"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultChatModel is the model used when none is configured. It is served
	// by Groq's OpenAI compatible endpoint.
	DefaultChatModel = "llama-3.1-8b-instant"
	// GroqBaseURL is the OpenAI compatible endpoint of Groq.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// OpenAIClient talks to any OpenAI compatible chat and embedding endpoint.
// Chat and embeddings may live on different hosts with different keys.
//
// An OpenAIClient should be created using NewOpenAIClient.
type OpenAIClient struct {
	chatModel      string
	embeddingModel string
	embeddingDim   int
	temperature    float64

	chatURL string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewOpenAIClientParams defines the configuration parameters for creating
// a new OpenAIClient.
//
// ChatURL and ChatKey configure the chat/completion API endpoint.
// EmbeddingURL and EmbeddingKey configure the embedding API endpoint; an
// empty EmbeddingKey disables embeddings.
type NewOpenAIClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	Temperature    float64

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
}

// NewOpenAIClient creates and returns a new OpenAIClient configured with
// the provided parameters.
//
// Example:
//
//	client := openai.NewOpenAIClient(openai.NewOpenAIClientParams{
//		ChatURL: openai.GroqBaseURL,
//		ChatKey: os.Getenv("AI_CHAT_KEY"),
//	})
func NewOpenAIClient(params NewOpenAIClientParams) *OpenAIClient {
	if params.ChatModel == "" {
		params.ChatModel = DefaultChatModel
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 1
	}

	return &OpenAIClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		embeddingDim:   params.EmbeddingDim,
		temperature:    params.Temperature,

		chatURL: params.ChatURL,

		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

var _ ai.Client = (*OpenAIClient)(nil)

package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// OllamaClient implements ai.Client using a locally hosted Ollama server.
type OllamaClient struct {
	chatModel      string
	embeddingModel string
	embeddingDim   int
	temperature    float64

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewOllamaClientParams contains configuration options for creating a new OllamaClient.
type NewOllamaClientParams struct {
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
	Temperature    float64

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so the caller's request is not modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL, or to the address in
// OLLAMA_HOST when BaseURL is empty.
func NewOllamaClient(params NewOllamaClientParams) (*OllamaClient, error) {
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 1
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: headers,
			rt:      http.DefaultTransport,
		},
	}

	var cli *api.Client
	if params.BaseURL != "" {
		u, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
		cli = api.NewClient(u, httpClient)
	} else {
		var err error
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	return &OllamaClient{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		embeddingDim:   params.EmbeddingDim,
		temperature:    params.Temperature,

		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),

		Client: cli,
	}, nil
}

var _ ai.Client = (*OllamaClient)(nil)

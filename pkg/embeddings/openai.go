package embeddings

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/planehq/contextplane/pkg/logger"
)

const (
	defaultModel   = openai.SmallEmbedding3
	defaultTimeout = 5 * time.Second
	// maxAttempts bounds the provider to one retry before the suggestion
	// engine commits to the fallback path.
	maxAttempts = 2
)

// OpenAIProvider implements Provider using the OpenAI embeddings API.
// Any OpenAI-compatible endpoint works via WithBaseURL.
type OpenAIProvider struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	model   openai.EmbeddingModel
	timeout time.Duration
	baseURL string
}

// WithModel overrides the embedding model.
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		c.model = openai.EmbeddingModel(model)
	}
}

// WithTimeout bounds each provider call. The overall suggestion request has
// a hard response-time ceiling regardless of provider behavior.
func WithTimeout(timeout time.Duration) OpenAIOption {
	return func(c *openAIConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = baseURL
	}
}

// NewOpenAIProvider creates a provider authenticated with the given API key.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	cfg := &openAIConfig{
		model:   defaultModel,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientConfig.BaseURL = cfg.baseURL
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.model,
		timeout: cfg.timeout,
	}
}

// Embed requests an embedding for the text, retrying once on failure. All
// failures come back wrapping ErrUnavailable so callers can switch to the
// keyword fallback path.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	var vector []float64

	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			resp, err := p.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
				Input: []string{text},
				Model: p.model,
			})
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 {
				return errors.New("empty embedding response")
			}

			raw := resp.Data[0].Embedding
			vector = make([]float64, len(raw))
			for i, v := range raw {
				vector[i] = float64(v)
			}
			return nil
		},
		retry.Attempts(maxAttempts),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying embedding request")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "embedding request failed: %v", err)
	}

	return vector, nil
}

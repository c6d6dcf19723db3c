// Package provider implements embedding generation against
// OpenAI-compatible APIs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/catalyzer/cabinet/internal/config"
)

// errEmptyEmbeddingResponse indicates the API returned HTTP 200 with no
// embedding data. Routing providers (e.g. OpenRouter) do this when every
// upstream fails; retrying is futile.
var errEmptyEmbeddingResponse = errors.New("empty embedding response")

// OpenAIEmbedder generates embedding vectors using any OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewOpenAIEmbedder creates an embedder from an endpoint configuration.
func NewOpenAIEmbedder(endpoint config.Endpoint) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(endpoint.APIKey())
	if endpoint.BaseURL() != "" {
		clientConfig.BaseURL = endpoint.BaseURL()
	}
	if endpoint.Timeout() > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: endpoint.Timeout()}
	}

	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         endpoint.Model(),
		maxRetries:    endpoint.MaxRetries(),
		initialDelay:  2 * time.Second,
		backoffFactor: 2.0,
	}
}

// Model returns the configured embedding model identifier.
func (p *OpenAIEmbedder) Model() string {
	return p.model
}

// Embed generates the embedding vector for a single text.
func (p *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: []string{text},
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) == 0 {
			return errEmptyEmbeddingResponse
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	return resp.Data[0].Embedding, nil
}

// withRetry executes the function with exponential backoff retry.
func (p *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable reports whether an error is worth retrying: rate limits,
// server-side failures, and transient network errors.
func isRetryable(err error) bool {
	if errors.Is(err, errEmptyEmbeddingResponse) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

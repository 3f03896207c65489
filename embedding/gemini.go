// Package embedding wraps the Gemini embedding API behind a small
// provider interface consumed by the analyzer and the query router
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Provider generates embedding vectors for document and query text.
// Document and query embeddings use different task types so they live in
// the same vector space but are optimized for their role.
type Provider interface {
	EmbedDocument(ctx context.Context, text string) ([]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	defaultModel    = "models/gemini-embedding-001"

	// Dimensions is the embedding width expected by the vector columns
	Dimensions = 768

	maxRetries     = 3
	initialBackoff = time.Second
	requestTimeout = 30 * time.Second
)

var (
	// ErrEmbeddingFailed is returned when every attempt was exhausted
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
	// ErrProviderUnavailable is returned on non-retryable API rejections
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
)

type embeddingRequest struct {
	Model                string       `json:"model"`
	Content              contentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

type contentInput struct {
	Parts []partInput `json:"parts"`
}

type partInput struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding embeddingData `json:"embedding"`
}

type embeddingData struct {
	Values []float64 `json:"values"`
}

// GeminiProvider calls the Gemini embedContent endpoint with retry and
// exponential backoff. Responses are normalized to unit vectors so
// pgvector cosine distance behaves consistently.
type GeminiProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	log        zerolog.Logger
	onRetry    func()
}

// GeminiOption configures a GeminiProvider
type GeminiOption func(*GeminiProvider)

// GeminiWithEndpoint overrides the API endpoint (used by tests)
func GeminiWithEndpoint(endpoint string) GeminiOption {
	return func(p *GeminiProvider) {
		p.endpoint = endpoint
	}
}

// GeminiWithHTTPClient overrides the HTTP client
func GeminiWithHTTPClient(client *http.Client) GeminiOption {
	return func(p *GeminiProvider) {
		p.httpClient = client
	}
}

// GeminiWithLogger sets the logger
func GeminiWithLogger(log zerolog.Logger) GeminiOption {
	return func(p *GeminiProvider) {
		p.log = log
	}
}

// GeminiWithRetryCounter registers a callback fired on every retry
func GeminiWithRetryCounter(onRetry func()) GeminiOption {
	return func(p *GeminiProvider) {
		p.onRetry = onRetry
	}
}

// NewGeminiProvider creates a provider using the given API key
func NewGeminiProvider(apiKey string, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EmbedDocument embeds chunk or article text for indexing
func (p *GeminiProvider) EmbedDocument(ctx context.Context, text string) ([]float64, error) {
	return p.embed(ctx, text, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery embeds a user query for retrieval
func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return p.embed(ctx, text, "RETRIEVAL_QUERY")
}

func (p *GeminiProvider) embed(ctx context.Context, text, taskType string) ([]float64, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: API key not set", ErrProviderUnavailable)
	}

	reqBody := embeddingRequest{
		Model: defaultModel,
		Content: contentInput{
			Parts: []partInput{{Text: text}},
		},
		TaskType:             taskType,
		OutputDimensionality: Dimensions,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if p.onRetry != nil {
				p.onRetry()
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, err)
			}
			p.log.Warn().Err(err).Int("attempt", attempt+1).Msg("embedding request failed, retrying")
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp embeddingResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&apiResp)
			resp.Body.Close()
			if decodeErr != nil {
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
				}
				continue
			}
			return normalize(apiResp.Embedding.Values), nil
		}

		resp.Body.Close()

		// client-side rejections are not retryable
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: API error %d", ErrProviderUnavailable, resp.StatusCode)
		}

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("API error after %d attempts: %d", maxRetries, resp.StatusCode)
		}
	}

	return nil, ErrEmbeddingFailed
}

// normalize scales a vector to unit length
func normalize(values []float64) []float64 {
	norm := 0.0
	for _, v := range values {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range values {
			values[i] /= norm
		}
	}
	return values
}

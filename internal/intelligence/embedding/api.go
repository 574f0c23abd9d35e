package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// ---------------------------------------------------------------------------
// APIEmbedder
// ---------------------------------------------------------------------------

// APIEmbedder calls a remote embedding service over HTTP.  Any request or
// decode failure falls back to the hash embedder for that call, so indexing
// and search keep working when the service is down; the degradation is
// logged at WARN.
type APIEmbedder struct {
	url      string
	apiKey   string
	model    string
	client   *http.Client
	fallback *HashEmbedder
	logger   logging.Logger
}

// APIConfig carries construction parameters for APIEmbedder.
type APIConfig struct {
	URL       string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewAPIEmbedder constructs an APIEmbedder.  The fallback hash embedder uses
// the same dimension so vectors from either path are comparable.
func NewAPIEmbedder(cfg APIConfig, logger logging.Logger) *APIEmbedder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &APIEmbedder{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
		fallback: NewHashEmbedder(cfg.Dimension),
		logger:   logger.Named("embedding"),
	}
}

func (e *APIEmbedder) Dimension() int { return e.fallback.Dimension() }

type embedRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements Embedder.
func (e *APIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := e.callAPI(ctx, text)
	if err != nil {
		e.logger.Warn("embedding API failed, using hash fallback", logging.Err(err))
		return e.fallback.Embed(ctx, text)
	}
	return vec, nil
}

// EmbedBatch implements Embedder.
func (e *APIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *APIEmbedder) callAPI(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: service returned status %d", resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(decoded.Embedding) != e.Dimension() {
		return nil, fmt.Errorf("embedding: service returned %d dimensions, want %d",
			len(decoded.Embedding), e.Dimension())
	}
	return decoded.Embedding, nil
}

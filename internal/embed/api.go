package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gserrors "github.com/grantsight/grantsight/internal/errors"
)

// APIConfig configures the hosted embedding backend.
type APIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Retry      RetryConfig
}

// APIEmbedder calls a hosted OpenAI-compatible embeddings API. It
// requires a key, bills per token, and returns vectors at the
// requested dimension.
type APIEmbedder struct {
	client    *http.Client
	transport *http.Transport
	cfg       APIConfig
}

var _ Embedder = (*APIEmbedder)(nil)

// NewAPIEmbedder creates a hosted API embedder. A missing key is a
// construction error, not a call-time one.
func NewAPIEmbedder(cfg APIConfig) (*APIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embed: api key is required for the hosted backend")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-large"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Delay == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}

	return &APIEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		cfg:       cfg,
	}, nil
}

// Embed generates an embedding for one text.
func (e *APIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == nil {
		return nil, fmt.Errorf("embed: no embedding returned for text")
	}
	return results[0], nil
}

// EmbedBatch embeds texts in one provider call, retried with backoff.
// Blank texts occupy nil positions in the output.
func (e *APIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	nonBlank, positions := blankPositions(texts)
	if len(nonBlank) == 0 {
		return results, nil
	}

	var vectors [][]float32
	err := withRetry(ctx, e.cfg.Retry, "embed_batch", func() error {
		var callErr error
		vectors, callErr = e.call(ctx, nonBlank)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(nonBlank) {
		return nil, gserrors.Permanent("embed_batch",
			fmt.Sprintf("provider returned %d embeddings for %d inputs", len(vectors), len(nonBlank)), nil)
	}
	for i, vec := range vectors {
		results[positions[i]] = vec
	}
	return results, nil
}

// Dimensions returns the requested embedding dimension.
func (e *APIEmbedder) Dimensions() int { return e.cfg.Dimensions }

// ModelName returns the configured model identifier.
func (e *APIEmbedder) ModelName() string { return e.cfg.Model }

// EstimateCost returns the dollar cost for a token count at the
// configured dimension's per-token rate.
func (e *APIEmbedder) EstimateCost(tokens int) float64 {
	return apiCost(tokens, e.cfg.Dimensions)
}

// Close releases idle connections.
func (e *APIEmbedder) Close() error {
	e.transport.CloseIdleConnections()
	return nil
}

type apiRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type apiResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (e *APIEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(apiRequest{
		Model:      e.cfg.Model,
		Input:      texts,
		Dimensions: e.cfg.Dimensions,
	})
	if err != nil {
		return nil, gserrors.Permanent("embed_batch", "encode request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		e.cfg.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, gserrors.Permanent("embed_batch", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, gserrors.Transient("embed_batch", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("embed_batch", resp)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, gserrors.Transient("embed_batch", "decode response", err)
	}

	vectors := make([][]float32, len(result.Data))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, gserrors.Permanent("embed_batch",
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// classifyStatus maps an HTTP error response to a provider error kind.
// 429 is a rate limit, 4xx auth/request errors are permanent,
// everything else is transient.
func classifyStatus(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := fmt.Sprintf("status %d", resp.StatusCode)

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = fmt.Sprintf("status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return gserrors.RateLimited(op, message, nil)
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusNotFound:
		return gserrors.Permanent(op, message, nil)
	default:
		return gserrors.Transient(op, message, nil)
	}
}

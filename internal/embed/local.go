package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gserrors "github.com/grantsight/grantsight/internal/errors"
)

// LocalConfig configures the local model backend.
type LocalConfig struct {
	Host       string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Retry      RetryConfig
}

// LocalEmbedder calls an Ollama-compatible embedding server. Vectors
// come back at the model's fixed dimension and are normalized; cost is
// always zero.
type LocalEmbedder struct {
	client    *http.Client
	transport *http.Transport
	cfg       LocalConfig
}

var _ Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates a local embedder.
func NewLocalEmbedder(cfg LocalConfig) (*LocalEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embed: local backend requires a configured dimension")
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

	return &LocalEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		cfg:       cfg,
	}, nil
}

// Embed generates an embedding for one text.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == nil {
		return nil, fmt.Errorf("embed: no embedding returned for text")
	}
	return results[0], nil
}

// EmbedBatch embeds texts in one server call, retried with backoff.
// Blank texts occupy nil positions in the output.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	nonBlank, positions := blankPositions(texts)
	if len(nonBlank) == 0 {
		return results, nil
	}

	var vectors [][]float32
	err := withRetry(ctx, e.cfg.Retry, "embed_local", func() error {
		var callErr error
		vectors, callErr = e.call(ctx, nonBlank)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(nonBlank) {
		return nil, gserrors.Permanent("embed_local",
			fmt.Sprintf("server returned %d embeddings for %d inputs", len(vectors), len(nonBlank)), nil)
	}
	for i, vec := range vectors {
		results[positions[i]] = normalizeVector(vec)
	}
	return results, nil
}

// Dimensions returns the model's fixed embedding dimension.
func (e *LocalEmbedder) Dimensions() int { return e.cfg.Dimensions }

// ModelName returns the configured model identifier.
func (e *LocalEmbedder) ModelName() string { return e.cfg.Model }

// EstimateCost always returns zero for the local backend.
func (e *LocalEmbedder) EstimateCost(int) float64 { return 0 }

// Close releases idle connections.
func (e *LocalEmbedder) Close() error {
	e.transport.CloseIdleConnections()
	return nil
}

type localRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type localResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *LocalEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(localRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, gserrors.Permanent("embed_local", "encode request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		e.cfg.Host+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, gserrors.Permanent("embed_local", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, gserrors.Transient("embed_local", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("embed_local", resp)
	}

	var result localResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, gserrors.Transient("embed_local", "decode response", err)
	}
	return result.Embeddings, nil
}

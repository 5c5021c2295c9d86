package embed

import (
	"context"
	"strings"
	"sync"

	gserrors "github.com/grantsight/grantsight/internal/errors"
)

// stubEmbedder returns deterministic vectors derived from text length.
// Batches containing a text with the "boom" marker fail whole.
type stubEmbedder struct {
	mu         sync.Mutex
	batchCalls int
	embedCalls int
	seen       [][]string
	dims       int
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims}
}

func stubVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	vec[0] = float32(len(text))
	return vec
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.embedCalls++
	s.mu.Unlock()
	if strings.Contains(text, "boom") {
		return nil, gserrors.Transient("embed", "stub failure", nil)
	}
	return stubVector(text, s.dims), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.batchCalls++
	s.seen = append(s.seen, append([]string(nil), texts...))
	s.mu.Unlock()

	results := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(text, "boom") {
			return nil, gserrors.Transient("embed_batch", "stub failure", nil)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		results[i] = stubVector(text, s.dims)
	}
	return results, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

func (s *stubEmbedder) ModelName() string { return "stub-model" }

func (s *stubEmbedder) EstimateCost(tokens int) float64 { return 0 }

func (s *stubEmbedder) Close() error { return nil }

func (s *stubEmbedder) calls() (batch, single int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchCalls, s.embedCalls
}

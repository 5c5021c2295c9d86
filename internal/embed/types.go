// Package embed converts text into fixed-dimension float vectors via
// one of two interchangeable backends: a hosted API charging per token,
// or a free local model server. Both hide batching, retry/backoff and
// cost estimation behind one interface.
package embed

import (
	"context"
	"math"
	"strings"
	"time"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Blank texts
	// are not sent to the provider but their positions are preserved
	// as nil entries, so the output aligns with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// EstimateCost returns the dollar cost of embedding tokens tokens.
	EstimateCost(tokens int) float64

	// Close releases resources held by the embedder.
	Close() error
}

// Defaults shared by both backends.
const (
	DefaultBatchSize     = 100
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = time.Second
	DefaultTimeout       = 30 * time.Second
	DefaultMaxConcurrent = 5
	DefaultDimensions    = 3072
)

// Per-1000-token pricing by requested dimension for the hosted API.
// Unknown dimensions bill at the full-dimension rate.
const (
	rateFull    = 0.00013 // 3072 dims
	rateReduced = 0.00002 // 256 dims
)

// ratePerThousand returns the hosted API price per 1000 tokens for a
// requested dimension.
func ratePerThousand(dims int) float64 {
	switch dims {
	case 256:
		return rateReduced
	default:
		return rateFull
	}
}

// apiCost computes the hosted API cost for a token count.
func apiCost(tokens, dims int) float64 {
	return float64(tokens) / 1000.0 * ratePerThousand(dims)
}

// blankPositions records which inputs are blank and returns the
// non-blank texts plus their original positions.
func blankPositions(texts []string) (nonBlank []string, positions []int) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		nonBlank = append(nonBlank, t)
		positions = append(positions, i)
	}
	return nonBlank, positions
}

// normalizeVector scales a vector to unit length in place and returns
// it. Zero vectors are returned unchanged.
func normalizeVector(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

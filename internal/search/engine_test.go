package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/store"
)

func floatPtr(f float64) *float64 { return &f }

func testCorpus() []store.Award {
	return []store.Award{
		{AwardID: "AWD-1", Title: "Solar energy storage", Abstract: "Grid-scale batteries for solar energy."},
		{AwardID: "AWD-2", Title: "Protein folding simulation", Abstract: "Molecular dynamics of protein structures."},
	}
}

func newTestEngine(awards *stubAwardStore, chunks *stubChunkStore, embedder *stubEmbedder) *Engine {
	return NewEngine(awards, chunks, embedder, WithSearchConfig(config.Default().Search))
}

func TestEngineSearch_HybridResponse(t *testing.T) {
	awards := &stubAwardStore{awards: testCorpus()}
	chunks := &stubChunkStore{matches: []store.VectorMatch{
		{AwardID: "AWD-2", ChunkIndex: 0, ChunkText: "Molecular dynamics of protein structures.", Similarity: 0.82},
	}}
	engine := newTestEngine(awards, chunks, &stubEmbedder{dims: 3})

	resp, err := engine.Search(context.Background(), Request{Query: "solar energy"})
	require.NoError(t, err)

	assert.Equal(t, "solar energy", resp.Query)
	require.NotEmpty(t, resp.HybridResults)
	require.NotEmpty(t, resp.LexicalResults)
	require.NotEmpty(t, resp.SemanticResults)

	// Defaults from configuration.
	assert.InDelta(t, 0.7, resp.Metadata.Alpha, 1e-9)
	assert.InDelta(t, 10.0, resp.Metadata.Beta, 1e-9)
	assert.Equal(t, len(resp.HybridResults), resp.Metadata.TotalHybrid)
	assert.Equal(t, len(resp.LexicalResults), resp.Metadata.TotalLexical)
	assert.Equal(t, len(resp.SemanticResults), resp.Metadata.TotalSemantic)

	// The strong lexical match on AWD-1 outranks the semantic-only hit
	// under the default lexical boost.
	assert.Equal(t, "AWD-1", resp.HybridResults[0].AwardID)
}

func TestEngineSearch_RequestOverridesWeights(t *testing.T) {
	awards := &stubAwardStore{awards: testCorpus()}
	chunks := &stubChunkStore{}
	engine := newTestEngine(awards, chunks, &stubEmbedder{dims: 3})

	resp, err := engine.Search(context.Background(), Request{
		Query: "solar",
		Alpha: floatPtr(0.3),
		Beta:  floatPtr(2.0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, resp.Metadata.Alpha, 1e-9)
	assert.InDelta(t, 2.0, resp.Metadata.Beta, 1e-9)
}

func TestEngineSearch_Validation(t *testing.T) {
	engine := newTestEngine(&stubAwardStore{}, &stubChunkStore{}, &stubEmbedder{dims: 3})
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"empty query", Request{Query: "   "}},
		{"top_k above max", Request{Query: "q", TopK: 101}},
		{"negative top_k", Request{Query: "q", TopK: -1}},
		{"alpha above one", Request{Query: "q", Alpha: floatPtr(1.5)}},
		{"negative alpha", Request{Query: "q", Alpha: floatPtr(-0.1)}},
		{"negative beta", Request{Query: "q", Beta: floatPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Search(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestEngineSearch_LexicalFailureDegrades(t *testing.T) {
	awards := &stubAwardStore{awards: testCorpus(), searchErr: errors.New("db down")}
	chunks := &stubChunkStore{matches: []store.VectorMatch{
		{AwardID: "AWD-1", ChunkIndex: 0, ChunkText: "chunk", Similarity: 0.9},
	}}
	engine := newTestEngine(awards, chunks, &stubEmbedder{dims: 3})

	resp, err := engine.Search(context.Background(), Request{Query: "solar"})
	require.NoError(t, err, "a degraded search is not an error")

	assert.Empty(t, resp.LexicalResults)
	assert.NotEmpty(t, resp.SemanticResults)
	assert.NotEmpty(t, resp.HybridResults)
}

func TestEngineSearch_SemanticFailureDegrades(t *testing.T) {
	awards := &stubAwardStore{awards: testCorpus()}
	chunks := &stubChunkStore{}
	engine := newTestEngine(awards, chunks, &stubEmbedder{dims: 3, embedErr: errors.New("provider down")})

	resp, err := engine.Search(context.Background(), Request{Query: "solar"})
	require.NoError(t, err)

	assert.Empty(t, resp.SemanticResults)
	assert.NotEmpty(t, resp.LexicalResults)
}

func TestEngineSearch_BothFailuresReturnEmptyResponse(t *testing.T) {
	awards := &stubAwardStore{searchErr: errors.New("db down")}
	chunks := &stubChunkStore{}
	engine := newTestEngine(awards, chunks, &stubEmbedder{dims: 3, embedErr: errors.New("provider down")})

	resp, err := engine.Search(context.Background(), Request{Query: "solar"})
	require.NoError(t, err)

	assert.Empty(t, resp.HybridResults)
	assert.Empty(t, resp.LexicalResults)
	assert.Empty(t, resp.SemanticResults)
	assert.Zero(t, resp.Metadata.TotalHybrid)
}

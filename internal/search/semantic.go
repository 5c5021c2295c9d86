package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/grantsight/grantsight/internal/embed"
	"github.com/grantsight/grantsight/internal/store"
)

// Semantic performs embedding-based nearest-neighbor search over
// stored chunks.
type Semantic struct {
	embedder embed.Embedder
	chunks   store.ChunkStore
	awards   store.AwardStore
}

// NewSemantic creates a semantic searcher.
func NewSemantic(embedder embed.Embedder, chunks store.ChunkStore, awards store.AwardStore) *Semantic {
	return &Semantic{embedder: embedder, chunks: chunks, awards: awards}
}

// Search embeds the query, finds the topK nearest chunks and joins
// award display fields onto the hits. Scores are cosine similarities.
func (s *Semantic) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic search: embed query: %w", err)
	}

	matches, err := s.chunks.SearchVectors(ctx, vec, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// One award fetch for the whole hit list.
	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		if !seen[m.AwardID] {
			seen[m.AwardID] = true
			ids = append(ids, m.AwardID)
		}
	}
	awards, err := s.awards.GetAwards(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("semantic search: fetch awards: %w", err)
	}
	byID := make(map[string]store.Award, len(awards))
	for _, a := range awards {
		byID[a.AwardID] = a
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			AwardID:       m.AwardID,
			ChunkIndex:    m.ChunkIndex,
			ChunkText:     m.ChunkText,
			Snippet:       truncateText(m.ChunkText, snippetMax),
			SemanticScore: m.Similarity,
			Award:         byID[m.AwardID],
		})
	}
	return results, nil
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

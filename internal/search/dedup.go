package search

import (
	"sort"
)

// Group collapses chunk-level results into one record per award.
//
// The first occurrence seeds the group's display fields. Each score is
// a running maximum kept independently; the final score is never
// re-derived from the hybrid formula. The snippet and best chunk index
// follow semantic score improvements only, lexical improvements leave
// them in place. With groupChunks set, each distinct chunk index is
// recorded once.
func Group(results []HybridResult, groupChunks bool) []GroupedResult {
	byID := make(map[string]*GroupedResult, len(results))
	var order []string

	for _, r := range results {
		g, ok := byID[r.AwardID]
		if !ok {
			g = &GroupedResult{
				AwardID:        r.AwardID,
				Award:          r.Award,
				FinalScore:     r.FinalScore,
				LexicalScore:   r.LexicalScore,
				SemanticScore:  r.SemanticScore,
				Snippet:        r.Snippet,
				BestChunkIndex: r.ChunkIndex,
			}
			byID[r.AwardID] = g
			order = append(order, r.AwardID)
		} else {
			if r.FinalScore > g.FinalScore {
				g.FinalScore = r.FinalScore
			}
			if r.LexicalScore > g.LexicalScore {
				g.LexicalScore = r.LexicalScore
			}
			if r.SemanticScore > g.SemanticScore {
				g.SemanticScore = r.SemanticScore
				g.Snippet = r.Snippet
				g.BestChunkIndex = r.ChunkIndex
			}
		}

		if groupChunks && !hasChunk(g.Chunks, r.ChunkIndex) {
			g.Chunks = append(g.Chunks, ChunkMatch{
				ChunkIndex:    r.ChunkIndex,
				ChunkText:     r.ChunkText,
				LexicalScore:  r.LexicalScore,
				SemanticScore: r.SemanticScore,
			})
		}
	}

	groups := make([]GroupedResult, 0, len(order))
	for _, id := range order {
		g := byID[id]
		sort.SliceStable(g.Chunks, func(i, j int) bool {
			return chunkSortKey(g.Chunks[i]) > chunkSortKey(g.Chunks[j])
		})
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groupSortKey(groups[i]) > groupSortKey(groups[j])
	})
	return groups
}

func hasChunk(chunks []ChunkMatch, index int) bool {
	for _, c := range chunks {
		if c.ChunkIndex == index {
			return true
		}
	}
	return false
}

// chunkSortKey orders chunks by semantic score, falling back to the
// lexical score when the semantic score is zero.
func chunkSortKey(c ChunkMatch) float64 {
	if c.SemanticScore != 0 {
		return c.SemanticScore
	}
	return c.LexicalScore
}

// groupSortKey orders groups by final score, falling back to semantic,
// then lexical, then zero.
func groupSortKey(g GroupedResult) float64 {
	switch {
	case g.FinalScore != 0:
		return g.FinalScore
	case g.SemanticScore != 0:
		return g.SemanticScore
	case g.LexicalScore != 0:
		return g.LexicalScore
	default:
		return 0
	}
}

// Package search implements the query path: lexical and semantic
// searches run in parallel, a hybrid scorer merges their score maps
// under configurable weighting, and grouping collapses chunk-level
// hits into one record per award.
package search

import (
	"errors"

	"github.com/grantsight/grantsight/internal/store"
)

// ErrInvalidRequest marks client-side request validation failures.
var ErrInvalidRequest = errors.New("search: invalid request")

// Result is one chunk-level hit from a single search type. Award
// display fields are denormalized onto the result.
type Result struct {
	AwardID       string      `json:"award_id"`
	ChunkIndex    int         `json:"chunk_index"`
	ChunkText     string      `json:"chunk_text,omitempty"`
	Snippet       string      `json:"snippet,omitempty"`
	LexicalScore  float64     `json:"lexical_score"`
	SemanticScore float64     `json:"semantic_score"`
	Award         store.Award `json:"award"`
}

// HybridResult is a Result with the combined score attached.
type HybridResult struct {
	Result
	FinalScore float64 `json:"final_score"`
}

// ChunkMatch is one distinct chunk recorded on a grouped result.
type ChunkMatch struct {
	ChunkIndex    int     `json:"chunk_index"`
	ChunkText     string  `json:"chunk_text,omitempty"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// GroupedResult is one award's collapsed result: the maximum of each
// score type across its chunks, the snippet of the best semantic hit,
// and the distinct chunks found.
type GroupedResult struct {
	AwardID        string       `json:"award_id"`
	Award          store.Award  `json:"award"`
	FinalScore     float64      `json:"final_score"`
	LexicalScore   float64      `json:"lexical_score"`
	SemanticScore  float64      `json:"semantic_score"`
	Snippet        string       `json:"snippet,omitempty"`
	BestChunkIndex int          `json:"best_chunk_index"`
	Chunks         []ChunkMatch `json:"chunks,omitempty"`
}

// Request is a hybrid search query. Nil Alpha/Beta fall back to the
// engine's configured defaults.
type Request struct {
	Query string   `json:"query"`
	TopK  int      `json:"top_k,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	TotalHybrid   int     `json:"total_hybrid"`
	TotalLexical  int     `json:"total_lexical"`
	TotalSemantic int     `json:"total_semantic"`
	Alpha         float64 `json:"alpha"`
	Beta          float64 `json:"beta"`
	TookMS        int64   `json:"took_ms"`
}

// Response is the full query result: grouped hybrid, lexical and
// semantic lists plus metadata.
type Response struct {
	Query           string          `json:"query"`
	HybridResults   []GroupedResult `json:"hybrid_results"`
	LexicalResults  []GroupedResult `json:"lexical_results"`
	SemanticResults []GroupedResult `json:"semantic_results"`
	Metadata        Metadata        `json:"metadata"`
}

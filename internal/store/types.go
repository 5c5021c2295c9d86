// Package store provides the Postgres-backed persistence layer: award
// reads, pgvector chunk storage and nearest-neighbor search.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/grantsight/grantsight/internal/chunk"
)

// Storage errors.
var (
	// ErrDimensionMismatch is returned when a vector's dimension does
	// not match the store's configured dimension.
	ErrDimensionMismatch = errors.New("store: embedding dimension mismatch")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Award is one record of the external grant corpus. Awards are created
// by an upstream ingestion step and are read-only here.
type Award struct {
	AwardID     string  `json:"award_id"`
	Title       string  `json:"title"`
	Abstract    string  `json:"abstract"`
	Agency      string  `json:"agency"`
	Status      string  `json:"status"`
	Institution string  `json:"institution"`
	PIName      string  `json:"pi_name"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	TotalAmount float64 `json:"total_amount"`
	URL         string  `json:"url"`
}

// VectorMatch is one nearest-neighbor hit from the chunk store.
type VectorMatch struct {
	AwardID    string  `json:"award_id"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	FieldName  string  `json:"field_name"`
	Similarity float64 `json:"similarity"`
}

// AwardStore reads award records from the relational store.
type AwardStore interface {
	// GetAwards fetches awards by id. Missing ids are silently absent
	// from the result.
	GetAwards(ctx context.Context, ids []string) ([]Award, error)

	// SearchCandidates returns awards whose title or abstract contains
	// the query substring, case-insensitively, deduplicated by award id.
	SearchCandidates(ctx context.Context, query string, limit int) ([]Award, error)

	// ListAwardIDs returns award ids updated at or after since. A zero
	// since lists the whole corpus. A non-positive limit means no limit.
	ListAwardIDs(ctx context.Context, since time.Time, limit int) ([]string, error)

	// CountAwards returns the corpus size.
	CountAwards(ctx context.Context) (int64, error)
}

// ChunkStore persists embedded chunks and searches them by vector.
type ChunkStore interface {
	// InsertChunks stores chunks with insert-or-ignore semantics on
	// text_hash and returns the number of rows actually inserted.
	InsertChunks(ctx context.Context, chunks []chunk.Chunk) (int, error)

	// SearchVectors returns the topK chunks nearest to query by cosine
	// distance, with similarity = 1 - distance. The optional filter
	// applies equality conditions before ranking.
	SearchVectors(ctx context.Context, query []float32, topK int, filter map[string]string) ([]VectorMatch, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int64, error)
}

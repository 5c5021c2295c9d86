// Package chunk splits award text fields into token-bounded overlapping
// spans ready for embedding and storage.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
)

// Field names a chunk can originate from.
const (
	FieldTitle    = "title"
	FieldAbstract = "abstract"
	FieldContext  = "title_abstract_context"
)

// Content type tags attached to chunks by the three chunking passes.
const (
	ContentTechnical = "technical"
	ContentTitle     = "title"
	ContentContext   = "context"
)

// Chunk is a derived span of text produced from one award field. It is
// created by the Chunker, receives its embedding once in the pipeline,
// and is never updated after persistence.
type Chunk struct {
	AwardID     string    `json:"award_id"`
	ChunkIndex  int       `json:"chunk_index"`
	Text        string    `json:"chunk_text"`
	TokenCount  int       `json:"token_count"`
	FieldName   string    `json:"field_name"`
	ContentType string    `json:"content_type"`
	TextHash    string    `json:"text_hash"`
	Embedding   []float32 `json:"-"`
}

// HashText returns the hex SHA-256 of text. The hash is the global
// dedup key for chunk storage: identical text collapses to one row.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

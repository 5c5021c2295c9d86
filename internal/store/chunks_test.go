package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantsight/grantsight/internal/chunk"
)

func testChunk(awardID string, idx int, text string, dims int) chunk.Chunk {
	return chunk.Chunk{
		AwardID:    awardID,
		ChunkIndex: idx,
		Text:       text,
		TokenCount: len(text),
		FieldName:  chunk.FieldAbstract,
		TextHash:   chunk.HashText(text),
		Embedding:  make([]float32, dims),
	}
}

func TestNewPgChunkStore_RejectsNonPositiveDims(t *testing.T) {
	_, err := NewPgChunkStore(nil, 0)
	assert.Error(t, err)
	_, err = NewPgChunkStore(nil, -3)
	assert.Error(t, err)
}

func TestDedupeByHash_KeepsLastOccurrence(t *testing.T) {
	s, err := NewPgChunkStore(nil, 3)
	require.NoError(t, err)

	first := testChunk("AWD-1", 0, "shared text", 3)
	other := testChunk("AWD-1", 1, "unique text", 3)
	last := testChunk("AWD-2", 5, "shared text", 3)

	deduped, err := s.dedupeByHash([]chunk.Chunk{first, other, last})
	require.NoError(t, err)
	require.Len(t, deduped, 2)

	// First-seen order is preserved but the last duplicate wins.
	assert.Equal(t, "AWD-2", deduped[0].AwardID)
	assert.Equal(t, 5, deduped[0].ChunkIndex)
	assert.Equal(t, "unique text", deduped[1].Text)
}

func TestDedupeByHash_DropsMissingEmbeddings(t *testing.T) {
	s, err := NewPgChunkStore(nil, 3)
	require.NoError(t, err)

	embedded := testChunk("AWD-1", 0, "has a vector", 3)
	bare := testChunk("AWD-1", 1, "no vector", 3)
	bare.Embedding = nil

	deduped, err := s.dedupeByHash([]chunk.Chunk{embedded, bare})
	require.NoError(t, err)
	require.Len(t, deduped, 1)
	assert.Equal(t, "has a vector", deduped[0].Text)
}

func TestDedupeByHash_DimensionMismatch(t *testing.T) {
	s, err := NewPgChunkStore(nil, 3)
	require.NoError(t, err)

	_, err = s.dedupeByHash([]chunk.Chunk{testChunk("AWD-1", 0, "wrong size", 5)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestInsertChunksSQL(t *testing.T) {
	chunks := []chunk.Chunk{
		testChunk("AWD-1", 0, "first", 3),
		testChunk("AWD-1", 1, "second", 3),
	}

	sql, args := insertChunksSQL(chunks)

	assert.Contains(t, sql, "INSERT INTO award_chunks")
	assert.Contains(t, sql, "ON CONFLICT (text_hash) DO NOTHING")
	assert.Contains(t, sql, "($1, $2, $3, $4, $5, $6, $7, $8)")
	assert.Contains(t, sql, "($9, $10, $11, $12, $13, $14, $15, $16)")
	assert.Len(t, args, 16)
	assert.Equal(t, "AWD-1", args[0])
	assert.Equal(t, "first", args[2])
	assert.Equal(t, chunks[1].TextHash, args[15])
}

func TestSearchVectorsSQL_FullPrecision(t *testing.T) {
	sql, args, err := searchVectorsSQL(1536, 10, nil)
	require.NoError(t, err)

	assert.Contains(t, sql, "embedding <=> $1")
	assert.NotContains(t, sql, "halfvec")
	assert.Contains(t, sql, "ORDER BY distance ASC LIMIT $2")
	require.Len(t, args, 2)
	assert.Equal(t, 10, args[1])
}

func TestSearchVectorsSQL_HighDimensionUsesHalfvec(t *testing.T) {
	sql, _, err := searchVectorsSQL(3072, 5, nil)
	require.NoError(t, err)

	assert.Contains(t, sql, "(embedding::halfvec(3072) <=> $1::halfvec(3072))")
}

func TestSearchVectorsSQL_BoundaryDimensionStaysFullPrecision(t *testing.T) {
	sql, _, err := searchVectorsSQL(2000, 5, nil)
	require.NoError(t, err)

	assert.NotContains(t, sql, "halfvec")
}

func TestSearchVectorsSQL_FilterColumns(t *testing.T) {
	sql, args, err := searchVectorsSQL(1536, 10, map[string]string{
		"field_name": "title",
		"award_id":   "AWD-1",
	})
	require.NoError(t, err)

	// Filter keys are sorted so the statement is stable.
	assert.Contains(t, sql, "WHERE award_id = $2 AND field_name = $3")
	require.Len(t, args, 4)
	assert.Equal(t, "AWD-1", args[1])
	assert.Equal(t, "title", args[2])
	assert.Equal(t, 10, args[3])
}

func TestSearchVectorsSQL_RejectsUnknownFilterColumn(t *testing.T) {
	_, _, err := searchVectorsSQL(1536, 10, map[string]string{
		"award_id; DROP TABLE award_chunks": "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported filter column")
}

func TestSchemaSQL(t *testing.T) {
	low := strings.Join(SchemaSQL(1536), "\n")
	assert.Contains(t, low, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, low, "CREATE EXTENSION IF NOT EXISTS pg_trgm")
	assert.Contains(t, low, "vector(1536)")
	assert.Contains(t, low, "text_hash TEXT NOT NULL UNIQUE")
	assert.Contains(t, low, "vector_cosine_ops")
	assert.NotContains(t, low, "halfvec")

	high := strings.Join(SchemaSQL(3072), "\n")
	assert.Contains(t, high, "vector(3072)")
	assert.Contains(t, high, "halfvec_cosine_ops")
}

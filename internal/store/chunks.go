package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/grantsight/grantsight/internal/chunk"
)

// maxFullPrecisionDims is the HNSW index's native dimension ceiling.
// Above it, search and indexing go through a halfvec cast so indexed
// ANN search stays available instead of degrading to a full scan.
const maxFullPrecisionDims = 2000

// insertBatchRows caps the rows per INSERT statement to stay well under
// the wire protocol's parameter limit.
const insertBatchRows = 500

// filterColumns whitelists the columns an equality filter may touch.
var filterColumns = map[string]bool{
	"award_id":   true,
	"field_name": true,
}

// PgChunkStore persists embedded chunks in a pgvector table.
type PgChunkStore struct {
	pool *pgxpool.Pool
	dims int
}

var _ ChunkStore = (*PgChunkStore)(nil)

// NewPgChunkStore creates a chunk store for the configured dimension.
func NewPgChunkStore(pool *pgxpool.Pool, dims int) (*PgChunkStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("store: chunk store dimension must be positive, got %d", dims)
	}
	return &PgChunkStore{pool: pool, dims: dims}, nil
}

// InsertChunks stores chunks with insert-or-ignore semantics on the
// text_hash uniqueness constraint. The incoming batch is deduplicated
// by text_hash first, keeping the last occurrence. No read-before-write
// check is made; conflicting rows are silently skipped by the database.
// Returns the number of rows actually inserted.
func (s *PgChunkStore) InsertChunks(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	deduped, err := s.dedupeByHash(chunks)
	if err != nil {
		return 0, err
	}
	if len(deduped) == 0 {
		return 0, nil
	}

	inserted := 0
	for start := 0; start < len(deduped); start += insertBatchRows {
		end := min(start+insertBatchRows, len(deduped))
		batch := deduped[start:end]

		sql, args := insertChunksSQL(batch)
		tag, err := s.pool.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, fmt.Errorf("store: insert chunks: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if skipped := len(deduped) - inserted; skipped > 0 {
		slog.Debug("duplicate chunks skipped on insert",
			slog.Int("inserted", inserted),
			slog.Int("skipped", skipped))
	}
	return inserted, nil
}

// dedupeByHash collapses in-batch duplicates, keeping the last
// occurrence of each text_hash, and validates embedding dimensions.
// Chunks without an embedding are dropped.
func (s *PgChunkStore) dedupeByHash(chunks []chunk.Chunk) ([]chunk.Chunk, error) {
	byHash := make(map[string]int, len(chunks))
	var order []string
	for _, c := range chunks {
		if c.Embedding == nil {
			continue
		}
		if len(c.Embedding) != s.dims {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(c.Embedding), s.dims)
		}
		if _, seen := byHash[c.TextHash]; !seen {
			order = append(order, c.TextHash)
		}
		byHash[c.TextHash] = -1
	}

	// Second pass records the last index per hash.
	for i, c := range chunks {
		if c.Embedding == nil {
			continue
		}
		byHash[c.TextHash] = i
	}

	deduped := make([]chunk.Chunk, 0, len(order))
	for _, h := range order {
		deduped = append(deduped, chunks[byHash[h]])
	}
	return deduped, nil
}

// insertChunksSQL builds a multi-row insert with ON CONFLICT DO NOTHING
// on text_hash.
func insertChunksSQL(chunks []chunk.Chunk) (string, []any) {
	const cols = 8
	var sb strings.Builder
	sb.WriteString(`INSERT INTO award_chunks
		(award_id, chunk_index, chunk_text, embedding, field_name, content_type, token_count, text_hash)
		VALUES `)

	args := make([]any, 0, len(chunks)*cols)
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, c.AwardID, c.ChunkIndex, c.Text,
			pgvector.NewVector(c.Embedding), c.FieldName, c.ContentType, c.TokenCount, c.TextHash)
	}
	sb.WriteString(` ON CONFLICT (text_hash) DO NOTHING`)
	return sb.String(), args
}

// SearchVectors returns the topK nearest chunks by cosine distance.
func (s *PgChunkStore) SearchVectors(ctx context.Context, query []float32, topK int, filter map[string]string) ([]VectorMatch, error) {
	if len(query) != s.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), s.dims)
	}
	if topK <= 0 {
		topK = 10
	}

	sql, args, err := searchVectorsSQL(s.dims, topK, filter)
	if err != nil {
		return nil, err
	}
	args[0] = pgvector.NewVector(query)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: vector search: %w", err)
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var m VectorMatch
		var distance float64
		if err := rows.Scan(&m.AwardID, &m.ChunkIndex, &m.ChunkText, &m.FieldName, &distance); err != nil {
			return nil, fmt.Errorf("store: scan vector match: %w", err)
		}
		m.Similarity = 1 - distance
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// searchVectorsSQL generates the nearest-neighbor query. The distance
// expression branches on dimension: above the HNSW ceiling the column
// and parameter are cast to halfvec so the reduced-precision index is
// used. Args[0] is reserved for the query vector.
func searchVectorsSQL(dims, topK int, filter map[string]string) (string, []any, error) {
	distExpr := "embedding <=> $1"
	if dims > maxFullPrecisionDims {
		distExpr = fmt.Sprintf("(embedding::halfvec(%d) <=> $1::halfvec(%d))", dims, dims)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		`SELECT award_id, chunk_index, chunk_text, field_name, %s AS distance FROM award_chunks`, distExpr))

	args := []any{nil}

	if len(filter) > 0 {
		keys := make([]string, 0, len(filter))
		for k := range filter {
			if !filterColumns[k] {
				return "", nil, fmt.Errorf("store: unsupported filter column %q", k)
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" WHERE ")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			args = append(args, filter[k])
			sb.WriteString(fmt.Sprintf("%s = $%d", k, len(args)))
		}
	}

	args = append(args, topK)
	sb.WriteString(fmt.Sprintf(" ORDER BY distance ASC LIMIT $%d", len(args)))
	return sb.String(), args, nil
}

// CountChunks returns the number of stored chunks.
func (s *PgChunkStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM award_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count chunks: %w", err)
	}
	return count, nil
}

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaSQL returns the DDL statements for the given embedding
// dimension. The ANN index branches on dimension: HNSW indexes vectors
// natively up to 2000 dims, above that a halfvec expression index
// keeps indexed search available.
func SchemaSQL(dims int) []string {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,

		`CREATE TABLE IF NOT EXISTS awards (
			award_id TEXT PRIMARY KEY,
			title TEXT,
			abstract TEXT,
			agency TEXT,
			status TEXT,
			institution TEXT,
			pi_name TEXT,
			start_date TEXT,
			end_date TEXT,
			total_amount NUMERIC,
			url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS award_chunks (
			chunk_id BIGSERIAL PRIMARY KEY,
			award_id TEXT NOT NULL,
			chunk_index INT NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(%d),
			field_name TEXT NOT NULL,
			content_type TEXT,
			token_count INT,
			text_hash TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (award_id, chunk_index, field_name)
		)`, dims),

		`CREATE INDEX IF NOT EXISTS idx_award_chunks_award_id ON award_chunks (award_id)`,

		// Trigram indexes back the case-insensitive substring queries
		// used for lexical candidate generation.
		`CREATE INDEX IF NOT EXISTS idx_awards_title_trgm ON awards USING gin (title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_awards_abstract_trgm ON awards USING gin (abstract gin_trgm_ops)`,
	}

	if dims > maxFullPrecisionDims {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_award_chunks_embedding_hnsw
			 ON award_chunks USING hnsw ((embedding::halfvec(%d)) halfvec_cosine_ops)`, dims))
	} else {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_award_chunks_embedding_hnsw
			 ON award_chunks USING hnsw (embedding vector_cosine_ops)`)
	}
	return stmts
}

// CreateSchema applies the schema DDL for the given dimension.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool, dims int) error {
	for _, stmt := range SchemaSQL(dims) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: apply schema: %w", err)
		}
	}
	slog.Info("schema applied", slog.Int("dimensions", dims),
		slog.Bool("halfvec_index", dims > maxFullPrecisionDims))
	return nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const awardColumns = `award_id,
	COALESCE(title, ''),
	COALESCE(abstract, ''),
	COALESCE(agency, ''),
	COALESCE(status, ''),
	COALESCE(institution, ''),
	COALESCE(pi_name, ''),
	COALESCE(start_date, ''),
	COALESCE(end_date, ''),
	COALESCE(total_amount, 0),
	COALESCE(url, '')`

// PgAwardStore reads awards from Postgres.
type PgAwardStore struct {
	pool *pgxpool.Pool
}

var _ AwardStore = (*PgAwardStore)(nil)

// NewPgAwardStore creates an award store on the given pool.
func NewPgAwardStore(pool *pgxpool.Pool) *PgAwardStore {
	return &PgAwardStore{pool: pool}
}

// GetAwards fetches awards by id.
func (s *PgAwardStore) GetAwards(ctx context.Context, ids []string) ([]Award, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+awardColumns+` FROM awards WHERE award_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("store: get awards: %w", err)
	}
	defer rows.Close()

	return scanAwards(rows)
}

// SearchCandidates returns awards whose title or abstract contains the
// query substring, case-insensitively. The primary key guarantees
// deduplication by award id.
func (s *PgAwardStore) SearchCandidates(ctx context.Context, query string, limit int) ([]Award, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+awardColumns+`
		 FROM awards
		 WHERE title ILIKE '%' || $1 || '%' OR abstract ILIKE '%' || $1 || '%'
		 LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search candidates: %w", err)
	}
	defer rows.Close()

	return scanAwards(rows)
}

// ListAwardIDs returns award ids updated at or after since, the whole
// corpus when since is zero.
func (s *PgAwardStore) ListAwardIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	sql := `SELECT award_id FROM awards`
	args := []any{}
	if !since.IsZero() {
		sql += ` WHERE updated_at >= $1`
		args = append(args, since)
	}
	sql += ` ORDER BY award_id`
	if limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list award ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan award id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountAwards returns the corpus size.
func (s *PgAwardStore) CountAwards(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM awards`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count awards: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAwards(rows rowScanner) ([]Award, error) {
	var awards []Award
	for rows.Next() {
		var a Award
		if err := rows.Scan(&a.AwardID, &a.Title, &a.Abstract, &a.Agency, &a.Status,
			&a.Institution, &a.PIName, &a.StartDate, &a.EndDate, &a.TotalAmount, &a.URL); err != nil {
			return nil, fmt.Errorf("store: scan award: %w", err)
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}

package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gameverse/tradecore/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL. The audit trail
// is append-only; rows leave the table only through DeleteBefore after they
// have been archived.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts a new audit record. The detail string is stored as JSONB.
func (s *AuditStore) Append(ctx context.Context, rec domain.AuditRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const query = `INSERT INTO audit_log (actor, action, detail, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, query, rec.Actor, rec.Action, []byte(rec.Detail), createdAt)
	if err != nil {
		return fmt.Errorf("postgres: append audit record %s: %w", rec.Action, err)
	}
	return nil
}

// ListBefore returns audit records created before the cutoff, oldest first.
func (s *AuditStore) ListBefore(ctx context.Context, before time.Time) ([]domain.AuditRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, actor, action, COALESCE(detail::text, ''), created_at
		 FROM audit_log
		 WHERE created_at < $1
		 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var id int64

		if err := rows.Scan(&id, &rec.Actor, &rec.Action, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit record: %w", err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list audit records rows: %w", err)
	}
	return records, nil
}

// DeleteBefore removes audit records created before the cutoff and returns
// the number of rows deleted.
func (s *AuditStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete audit records before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

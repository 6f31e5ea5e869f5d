package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-io/fieldline/internal/idempotency"
)

func (s *Store) GetRecord(ctx context.Context, organizationID, route, key string) (idempotency.Record, error) {
	var (
		r         idempotency.Record
		status    sql.NullInt64
		body      []byte
		completed int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT org_id, route, idem_key, body_hash, status_code, response_body, completed, created_at
		 FROM idempotency_records WHERE org_id = ? AND route = ? AND idem_key = ?`,
		organizationID, route, key).
		Scan(&r.OrganizationID, &r.Route, &r.Key, &r.BodyHash, &status, &body, &completed, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return idempotency.Record{}, idempotency.ErrNotFound
	}
	if err != nil {
		return idempotency.Record{}, fmt.Errorf("get idempotency record: %w", err)
	}
	r.ResponseStatus = int(status.Int64)
	r.ResponseBody = body
	r.Completed = completed != 0
	return r, nil
}

func (s *Store) CreateRecord(ctx context.Context, r idempotency.Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency_records (id, org_id, route, idem_key, body_hash, completed, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		uuid.NewString(), r.OrganizationID, r.Route, r.Key, r.BodyHash, r.CreatedAt)
	if isUniqueViolation(err) {
		return idempotency.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create idempotency record: %w", err)
	}
	return nil
}

func (s *Store) SaveResponse(ctx context.Context, organizationID, route, key string, status int, body []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE idempotency_records SET status_code = ?, response_body = ?, completed = 1
		 WHERE org_id = ? AND route = ? AND idem_key = ?`,
		status, body, organizationID, route, key)
	if err != nil {
		return fmt.Errorf("save idempotency response: %w", err)
	}
	return requireAffected(res)
}

// DeleteRecordsBefore removes idempotency records created before the cutoff.
// Used by the background sweep job.
func (s *Store) DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep idempotency records: %w", err)
	}
	return res.RowsAffected()
}

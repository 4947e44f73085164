package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Store is a Postgres-backed Sink.
//
// Expected schema:
//
//	CREATE TABLE guard_audit_events (
//	    id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	    decision_id text NOT NULL,
//	    fingerprint text NOT NULL,
//	    method      text NOT NULL,
//	    path        text NOT NULL,
//	    conclusion  text NOT NULL,
//	    outcome     text NOT NULL,
//	    detail      jsonb,
//	    created_at  timestamptz NOT NULL DEFAULT now()
//	);
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new audit store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record implements Sink.
func (s *Store) Record(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guard_audit_events (decision_id, fingerprint, method, path, conclusion, outcome, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.DecisionID, e.Fingerprint, e.Method, e.Path, e.Conclusion, e.Outcome, e.Detail,
	)
	return err
}

// Recent returns the most recent audit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var events []Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT * FROM guard_audit_events ORDER BY created_at DESC LIMIT $1`, limit)
	return events, err
}

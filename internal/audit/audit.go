// Package audit persists per-decision audit events. The Decision itself is
// still discarded after the request; the event is a derived record kept for
// traceability. Persistence is optional — without a database the always-on
// structured log in the guard is the audit trail.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one recorded decision.
type Event struct {
	ID          string          `json:"id" db:"id"`
	DecisionID  string          `json:"decision_id" db:"decision_id"`
	Fingerprint string          `json:"fingerprint" db:"fingerprint"`
	Method      string          `json:"method" db:"method"`
	Path        string          `json:"path" db:"path"`
	Conclusion  string          `json:"conclusion" db:"conclusion"`
	Outcome     string          `json:"outcome" db:"outcome"`
	Detail      json.RawMessage `json:"detail,omitempty" db:"detail"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Sink receives decision audit events.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

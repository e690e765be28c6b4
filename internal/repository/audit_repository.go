package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/stadium-hospitality/internal/queue"
)

// AuditRepo stores audit events consumed from the broker.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Insert stores ev.  Deliveries repeating an already stored EventID are
// ignored; the returned bool reports whether a row was written.
func (r *AuditRepo) Insert(ctx context.Context, ev queue.AuditEvent) (bool, error) {
	var meta any
	if len(ev.Metadata) > 0 {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return false, err
		}
		meta = string(b)
	}
	const q = `INSERT IGNORE INTO audit_logs
               (event_uuid, operation, actor_id, stadium_id, entity_type, entity_id, metadata, occurred_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.EventID, ev.Operation, ev.ActorID, ev.StadiumID, ev.EntityType, ev.EntityID, meta, ev.OccurredAt.UTC(),
	)
	if err != nil {
		return false, classify(err, "audit insert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

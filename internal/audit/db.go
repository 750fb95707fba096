package audit

import (
	"context"
	"fmt"

	"backoffice/internal/db"
)

// DefaultTable is where DBSink writes.
const DefaultTable = "admin_audit_log"

// DBSink persists events in a table with columns event_id, actor_id,
// entity_type, entity_id, action, message, old_state, new_state,
// request_id and created_at.
type DBSink struct {
	DB    db.Querier
	Table string
}

func (s DBSink) table() string {
	if s.Table != "" {
		return s.Table
	}
	return DefaultTable
}

func (s DBSink) Record(ctx context.Context, ev Event) error {
	if s.DB == nil {
		return fmt.Errorf("audit db sink: no database")
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO `+s.table()+`
		(event_id, actor_id, entity_type, entity_id, action, message, old_state, new_state, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, int64(ev.ActorID), ev.EntityType, int64(ev.EntityID), ev.Action, ev.Message,
		db.NullIfEmpty(ev.OldState), db.NullIfEmpty(ev.NewState), db.NullIfEmpty(ev.RequestID),
		ev.Timestamp.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

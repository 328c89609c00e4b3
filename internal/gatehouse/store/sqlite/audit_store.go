package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// AuditStore appends to audit_events.  Triggers in the schema reject
// UPDATE and DELETE on that table.
type AuditStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditStore(db *sql.DB, writer *dbpkg.Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

func (s *AuditStore) Append(ctx context.Context, ev types.AuditEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_events(
  event_id, module, request_id, actor_id, checkpoint, action,
  ts_ms, before_json, after_json, detail
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			ev.ID, ev.Module, nullString(ev.RequestID), ev.ActorID, nullString(ev.Checkpoint),
			string(ev.Action), ev.Timestamp.UTC().UnixMilli(),
			nullBytes(ev.Before), nullBytes(ev.After), nullString(ev.Detail),
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", unavailable("Append", err)
	}
	return ev.ID, nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]types.AuditEvent, error) {
	q := `
SELECT seq, event_id, module, request_id, actor_id, checkpoint, action,
       ts_ms, before_json, after_json, detail
FROM audit_events
ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("Recent query", err)
	}
	defer rows.Close()

	var out []types.AuditEvent
	for rows.Next() {
		var (
			ev                    types.AuditEvent
			requestID, checkpoint sql.NullString
			before, after, detail sql.NullString
			action                string
			tsMs                  int64
		)
		if err := rows.Scan(
			&ev.Seq, &ev.ID, &ev.Module, &requestID, &ev.ActorID, &checkpoint, &action,
			&tsMs, &before, &after, &detail,
		); err != nil {
			return nil, unavailable("Recent scan", err)
		}
		ev.RequestID = requestID.String
		ev.Checkpoint = checkpoint.String
		ev.Action = types.AuditAction(action)
		ev.Timestamp = time.UnixMilli(tsMs).UTC()
		if before.Valid {
			ev.Before = []byte(before.String)
		}
		if after.Valid {
			ev.After = []byte(after.String)
		}
		ev.Detail = detail.String
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("Recent rows", err)
	}

	// Newest-first from SQL; callers expect append order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
)

type CheckpointStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCheckpointStore(db *sql.DB, writer *dbpkg.Worker) *CheckpointStore {
	return &CheckpointStore{db: db, writer: writer}
}

// IsKnown treats "known" as commissioned, enabled and not revoked.
func (s *CheckpointStore) IsKnown(ctx context.Context, checkpointID string) (bool, error) {
	checkpointID = strings.TrimSpace(checkpointID)
	if checkpointID == "" {
		return false, nil
	}

	var enabled int
	var commissioned sql.NullInt64
	var revoked sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
SELECT enabled, commissioned_at_ms, revoked_at_ms
FROM checkpoints
WHERE checkpoint_id = ?;
`, checkpointID).Scan(&enabled, &commissioned, &revoked)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("IsKnown query", err)
	}

	return enabled == 1 && commissioned.Valid && !revoked.Valid, nil
}

// MarkSeen records a sighting, creating a disabled row for checkpoints
// that have never been commissioned.
func (s *CheckpointStore) MarkSeen(ctx context.Context, checkpointID string, _ bool, t time.Time) error {
	checkpointID = strings.TrimSpace(checkpointID)
	if checkpointID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureCheckpoint(ctx, tx, checkpointID, ms); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
UPDATE checkpoints
SET last_seen_at_ms = ?,
    updated_at_ms   = ?
WHERE checkpoint_id = ?;
`, ms, ms, checkpointID)
		return err
	})
	return unavailable("MarkSeen", err)
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureCheckpoint guarantees a checkpoints row exists so the heartbeat
// foreign key is satisfied.  New rows start disabled and uncommissioned;
// only an admin action (or the dev seeder) enables them.
//
// Must be called inside an existing transaction.
func ensureCheckpoint(ctx context.Context, tx *sql.Tx, checkpointID string, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO checkpoints(
  checkpoint_id, enabled, created_at_ms, updated_at_ms
) VALUES (?, 0, ?, ?);
`, checkpointID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureCheckpoint %s: %w", checkpointID, err)
	}
	return nil
}

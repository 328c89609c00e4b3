package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// KnownCheckpoints are created enabled and commissioned.
	KnownCheckpoints []string
}

// SeedDev commissions the main gate desk plus any configured checkpoints.
// Safe to run on every start.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	ids := append([]string{"gate-main-desk"}, opt.KnownCheckpoints...)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT INTO checkpoints(
  checkpoint_id, display_name, kind,
  enabled, commissioned_at_ms,
  created_at_ms, updated_at_ms
) VALUES (?, ?, 'desk', 1, ?, ?, ?)
ON CONFLICT(checkpoint_id) DO UPDATE SET
  enabled = 1,
  commissioned_at_ms = COALESCE(checkpoints.commissioned_at_ms, excluded.commissioned_at_ms),
  updated_at_ms = excluded.updated_at_ms;
`, id, id, now, now, now); err != nil {
			return fmt.Errorf("seed checkpoint %s: %w", id, err)
		}
	}

	return nil
}

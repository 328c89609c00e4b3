package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
)

type HeartbeatStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewHeartbeatStore(db *sql.DB, writer *dbpkg.Worker) *HeartbeatStore {
	return &HeartbeatStore{db: db, writer: writer}
}

func (s *HeartbeatStore) UpsertHeartbeat(ctx context.Context, checkpointID string, rec store.HeartbeatRecord) error {
	checkpointID = strings.TrimSpace(checkpointID)
	if checkpointID == "" {
		return nil
	}

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	recvMs := rec.ReceivedAt.UTC().UnixMilli()

	sw := strings.TrimSpace(rec.Request.SoftwareVersion)
	ip := strings.TrimSpace(rec.Request.IP)

	var uptimeMs any
	if rec.Request.UptimeSeconds != 0 {
		uptimeMs = int64(rec.Request.UptimeSeconds) * 1000
	}

	var scanner any
	if rec.Request.ScannerOnline != nil {
		if *rec.Request.ScannerOnline {
			scanner = 1
		} else {
			scanner = 0
		}
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureCheckpoint(ctx, tx, checkpointID, recvMs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO checkpoint_heartbeats(
  checkpoint_id, received_at_ms, uptime_ms, sw_version, scanner_online, ip
) VALUES (?, ?, ?, ?, ?, ?);
`, checkpointID, recvMs, uptimeMs, sw, scanner, ip); err != nil {
			return fmt.Errorf("UpsertHeartbeat insert heartbeat: %w", err)
		}

		// Snapshot on the checkpoint row for "current status" queries.
		if _, err := tx.ExecContext(ctx, `
UPDATE checkpoints
SET last_seen_at_ms = ?,
    last_ip = ?,
    last_sw_version = ?,
    updated_at_ms = ?
WHERE checkpoint_id = ?;
`, recvMs, ip, sw, recvMs, checkpointID); err != nil {
			return fmt.Errorf("UpsertHeartbeat update checkpoint snapshot: %w", err)
		}

		return nil
	})
	return unavailable("UpsertHeartbeat", err)
}

// PruneOlderThan deletes heartbeat rows received before cutoff and returns
// how many were removed.  Uses idx_heartbeats_time.
func (s *HeartbeatStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM checkpoint_heartbeats
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, unavailable("PruneOlderThan", err)
}

package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
)

// openTestDB returns a named in-memory database opened through db.Open, so
// tests run with the production PRAGMAs and migrations. The connection is
// closed automatically when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(context.Background(), db.Config{
		MemoryName:  "test_" + name,
		Env:         "test",
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedCheckpoint inserts a commissioned, enabled checkpoint row.
func seedCheckpoint(t *testing.T, conn *sql.DB, checkpointID string) {
	t.Helper()
	nowMs := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(context.Background(), `
INSERT OR IGNORE INTO checkpoints(checkpoint_id, enabled, commissioned_at_ms, created_at_ms, updated_at_ms)
VALUES (?, 1, ?, ?, ?);`, checkpointID, nowMs, nowMs, nowMs)
	if err != nil {
		t.Fatalf("seedCheckpoint(%s): %v", checkpointID, err)
	}
}

package db

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openWorkerDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(context.Background(), Config{MemoryName: "worker_" + t.Name(), Env: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWorker_WaitsForStartedJob(t *testing.T) {
	w := NewWorker(openWorkerDB(t))
	t.Cleanup(w.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	finished := false
	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		time.Sleep(60 * time.Millisecond)
		finished = true
		return nil
	})

	// Do returned, so the job is done and finished is safe to read.
	assert.True(t, finished)
	assert.Error(t, err, "commit after the context ended")
}

func TestWorker_SkipsAbandonedQueuedJob(t *testing.T) {
	w := NewWorker(openWorkerDB(t))

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		ran.Store(true)
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	w.Close()
	assert.False(t, ran.Load())
}

func TestWorker_DoAfterClose(t *testing.T) {
	w := NewWorker(openWorkerDB(t))
	w.Close()
	w.Close()

	err := w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerClosed)
}

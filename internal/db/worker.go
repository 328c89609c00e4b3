package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrWorkerClosed is returned by Do after Close.
var ErrWorkerClosed = errors.New("db writer closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error

	// claimed is won by either the loop (the job runs) or a caller whose
	// context ended first (the job is skipped).
	claimed *atomic.Bool
}

// Worker serializes every write transaction through one goroutine.  With
// SQLite this makes each TxFn run against a stable snapshot, so a
// read-check-write inside one TxFn is a compare-and-set.
type Worker struct {
	db   *sql.DB
	jobs chan job
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan job, 256),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains queued jobs and stops the worker.  Calling it twice is safe.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	<-w.done
}

// Do runs fn in a write transaction on the worker goroutine.  If ctx ends
// before the job starts, the job is dropped and ctx.Err() returned.  Once
// the job has started Do waits for it, so fn never outlives the call.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	j := job{ctx: ctx, fn: fn, ch: make(chan error, 1), claimed: new(atomic.Bool)}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case err := <-j.ch:
		return err
	case <-ctx.Done():
		if j.claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		return <-j.ch
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		if !j.claimed.CompareAndSwap(false, true) {
			continue
		}

		tx, err := w.db.BeginTx(j.ctx, nil)
		if err != nil {
			j.ch <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.ch <- err
			continue
		}

		j.ch <- tx.Commit()
	}
}

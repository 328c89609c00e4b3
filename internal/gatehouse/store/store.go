package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable wraps infrastructure failures (driver errors,
	// timeouts, closed connections).  Callers propagate it untouched.
	ErrUnavailable = errors.New("store unavailable")

	// ErrConflict is returned when a conditional update keeps losing to
	// concurrent writers.
	ErrConflict = errors.New("concurrent update conflict")
)

type HeartbeatRecord struct {
	ReceivedAt time.Time
	Request    types.HeartbeatRequest
}

type HeartbeatStore interface {
	UpsertHeartbeat(ctx context.Context, checkpointID string, rec HeartbeatRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

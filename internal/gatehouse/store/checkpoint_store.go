package store

import (
	"context"
	"time"
)

type CheckpointStore interface {
	IsKnown(ctx context.Context, checkpointID string) (bool, error)
	MarkSeen(ctx context.Context, checkpointID string, known bool, t time.Time) error
}

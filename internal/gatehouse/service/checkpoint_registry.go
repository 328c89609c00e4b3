package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

// CheckpointRegistry knows which physical stations (desks, QR scanners)
// are commissioned.
type CheckpointRegistry struct {
	store   store.CheckpointStore
	enforce bool
	log     logger.Logger
}

// NewCheckpointRegistry returns a registry.  With enforce unset, Check
// lets every station through and only sightings are recorded.
func NewCheckpointRegistry(st store.CheckpointStore, enforce bool, log logger.Logger) *CheckpointRegistry {
	if log == nil {
		log = logger.NewNop()
	}
	return &CheckpointRegistry{store: st, enforce: enforce, log: log}
}

func (r *CheckpointRegistry) IsKnown(ctx context.Context, checkpointID string) (bool, error) {
	checkpointID = strings.TrimSpace(checkpointID)
	if checkpointID == "" {
		return false, nil
	}
	return r.store.IsKnown(ctx, checkpointID)
}

func (r *CheckpointRegistry) NoteSeen(ctx context.Context, checkpointID string, known bool) error {
	checkpointID = strings.TrimSpace(checkpointID)
	if checkpointID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, checkpointID, known, time.Now().UTC())
}

// Check admits a checkpoint operation.  It returns ErrUnknownCheckpoint
// for stations that are blank or not commissioned while enforcement is on.
func (r *CheckpointRegistry) Check(ctx context.Context, checkpointID string) error {
	if r == nil || !r.enforce {
		return nil
	}
	known, err := r.IsKnown(ctx, checkpointID)
	if err != nil {
		return err
	}
	if err := r.NoteSeen(ctx, checkpointID, known); err != nil {
		r.log.Warn("checkpoint sighting not recorded", "checkpoint", checkpointID, "error", err)
	}
	if !known {
		return ErrUnknownCheckpoint
	}
	return nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

// HeartbeatService records liveness pings from checkpoint terminals.
// Unknown terminals are recorded too so the desk can commission them.
type HeartbeatService struct {
	heartbeatStore store.HeartbeatStore
	registry       *CheckpointRegistry
	log            logger.Logger
}

func NewHeartbeatService(hs store.HeartbeatStore, reg *CheckpointRegistry, log logger.Logger) *HeartbeatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &HeartbeatService{heartbeatStore: hs, registry: reg, log: log}
}

func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	checkpointID := strings.TrimSpace(req.CheckpointID)
	if checkpointID == "" {
		return types.HeartbeatResponse{}, ErrInvalidCheckpointID
	}
	req.CheckpointID = checkpointID

	known, err := s.registry.IsKnown(ctx, checkpointID)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}
	if err := s.registry.NoteSeen(ctx, checkpointID, known); err != nil {
		s.log.Warn("checkpoint sighting not recorded", "checkpoint", checkpointID, "error", err)
	}
	if !known {
		s.log.Info("heartbeat from unknown checkpoint", "checkpoint", checkpointID, "ip", req.IP)
	}

	now := time.Now().UTC()
	rec := store.HeartbeatRecord{
		ReceivedAt: now,
		Request:    req,
	}
	if err := s.heartbeatStore.UpsertHeartbeat(ctx, checkpointID, rec); err != nil {
		return types.HeartbeatResponse{}, err
	}

	return types.HeartbeatResponse{
		OK:           true,
		Known:        known,
		CheckpointID: checkpointID,
		ServerTime:   now.Format(time.RFC3339Nano),
	}, nil
}

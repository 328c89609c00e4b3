package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

func TestHeartbeatPruner_DisabledWhenRetentionZero(t *testing.T) {
	ms := memory.New()
	pruner := service.NewHeartbeatPruner(ms, service.PrunerConfig{
		RetentionDays: 0,
		IntervalHours: 1,
	}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pruner.Start(ctx)
	pruner.Stop()

	if n := pruner.PruneNow(ctx); n != 0 {
		t.Errorf("disabled pruner deleted %d rows", n)
	}
}

func TestHeartbeatPruner_PrunesOldRecords(t *testing.T) {
	ms := memory.New()
	ctx := context.Background()

	old := store.HeartbeatRecord{
		ReceivedAt: time.Now().UTC().AddDate(0, 0, -40),
		Request:    types.HeartbeatRequest{CheckpointID: "gate-old"},
	}
	if err := ms.UpsertHeartbeat(ctx, "gate-old", old); err != nil {
		t.Fatalf("insert old: %v", err)
	}

	recent := store.HeartbeatRecord{
		ReceivedAt: time.Now().UTC().AddDate(0, 0, -1),
		Request:    types.HeartbeatRequest{CheckpointID: "gate-recent"},
	}
	if err := ms.UpsertHeartbeat(ctx, "gate-recent", recent); err != nil {
		t.Fatalf("insert recent: %v", err)
	}

	pruner := service.NewHeartbeatPruner(ms, service.PrunerConfig{RetentionDays: 30}, logger.NewNop())
	if n := pruner.PruneNow(ctx); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if ms.Len() != 1 {
		t.Errorf("expected 1 heartbeat left, got %d", ms.Len())
	}
	if n := pruner.PruneNow(ctx); n != 0 {
		t.Errorf("second pass pruned %d", n)
	}
}

func TestHeartbeatPruner_StopIsIdempotent(t *testing.T) {
	ms := memory.New()
	pruner := service.NewHeartbeatPruner(ms, service.PrunerConfig{
		RetentionDays: 30,
		IntervalHours: 1,
	}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	pruner.Start(ctx)
	pruner.Start(ctx)

	cancel()
	pruner.Stop()
	pruner.Stop()
}

func TestHeartbeatPruner_StopWithoutStart(t *testing.T) {
	pruner := service.NewHeartbeatPruner(memory.New(), service.PrunerConfig{RetentionDays: 30}, nil)

	done := make(chan struct{})
	go func() {
		pruner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a pruner that never started")
	}
}

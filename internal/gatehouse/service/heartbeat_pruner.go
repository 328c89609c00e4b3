package service

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

// HeartbeatPruner deletes checkpoint heartbeats older than the retention
// period.  Access requests and audit events are never pruned.
//
// A retention of 0 disables pruning entirely.
type HeartbeatPruner struct {
	store     store.HeartbeatStore
	retention time.Duration
	interval  time.Duration
	log       logger.Logger
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

// PrunerConfig holds the parameters for NewHeartbeatPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of heartbeat history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewHeartbeatPruner creates a pruner but does not start it.
func NewHeartbeatPruner(s store.HeartbeatStore, cfg PrunerConfig, log logger.Logger) *HeartbeatPruner {
	if log == nil {
		log = logger.NewNop()
	}
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &HeartbeatPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		done:      make(chan struct{}),
	}
}

// Start prunes once, then again every interval until ctx is cancelled or
// Stop is called.  Calling Start twice has no effect.
func (p *HeartbeatPruner) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.retention <= 0 {
			p.log.Info("heartbeat pruner disabled", "retention_days", 0)
			close(p.done)
			return
		}

		ctx, p.cancel = context.WithCancel(ctx)
		go p.loop(ctx)

		p.log.Info("heartbeat pruner started",
			"retention_days", int(p.retention.Hours()/24),
			"interval_hours", int(p.interval.Hours()))
	})
}

// Stop signals the pruner to exit and waits for it to finish.  A pruner
// that was never started cannot be started afterwards.
func (p *HeartbeatPruner) Stop() {
	p.startOnce.Do(func() { close(p.done) })
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *HeartbeatPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneNow(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneNow(ctx)
		}
	}
}

// PruneNow runs one pass and returns how many heartbeats were removed.
func (p *HeartbeatPruner) PruneNow(ctx context.Context) int64 {
	if p.retention <= 0 {
		return 0
	}
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("heartbeat prune failed", "error", err)
		return 0
	}
	if deleted > 0 {
		p.log.Info("heartbeats pruned", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted
}

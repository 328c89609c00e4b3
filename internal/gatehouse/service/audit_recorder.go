package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

const defaultAuditWindow = 1000

// AuditFilter narrows Query.  Zero-value fields are ignored.
type AuditFilter struct {
	Module    string
	RequestID string
	ActorID   string
	Action    types.AuditAction
	From      time.Time
	To        time.Time
	FreeText  string
	Limit     int
}

// AuditRecorder is the only writer of audit events.
type AuditRecorder struct {
	store  store.AuditStore
	window int
	log    logger.Logger
	now    func() time.Time
}

// NewAuditRecorder keeps the last window events in scope for Query
// (1000 when window <= 0).
func NewAuditRecorder(st store.AuditStore, window int, log logger.Logger) *AuditRecorder {
	if window <= 0 {
		window = defaultAuditWindow
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AuditRecorder{
		store:  st,
		window: window,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append stores ev and returns its id.  Store failures are returned as-is.
func (r *AuditRecorder) Append(ctx context.Context, ev types.AuditEvent) (string, error) {
	if ev.Module == "" {
		ev.Module = types.AuditModule
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	id, err := r.store.Append(ctx, ev)
	if err != nil {
		r.log.Error("audit append failed",
			"action", string(ev.Action), "request_id", ev.RequestID, "error", err)
		return "", fmt.Errorf("append audit event: %w", err)
	}
	return id, nil
}

// Query filters the recent window in memory and returns matches in append
// order.  With a Limit, the newest Limit matches are kept.
func (r *AuditRecorder) Query(ctx context.Context, f AuditFilter) ([]types.AuditEvent, error) {
	events, err := r.store.Recent(ctx, r.window)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	text := strings.ToLower(strings.TrimSpace(f.FreeText))
	out := make([]types.AuditEvent, 0, len(events))
	for _, ev := range events {
		if f.Module != "" && ev.Module != f.Module {
			continue
		}
		if f.RequestID != "" && ev.RequestID != f.RequestID {
			continue
		}
		if f.ActorID != "" && ev.ActorID != f.ActorID {
			continue
		}
		if f.Action != "" && ev.Action != f.Action {
			continue
		}
		if !f.From.IsZero() && ev.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && ev.Timestamp.After(f.To) {
			continue
		}
		if text != "" && !matchesText(ev, text) {
			continue
		}
		out = append(out, ev)
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

func matchesText(ev types.AuditEvent, needle string) bool {
	for _, hay := range []string{ev.ActorID, string(ev.Action), ev.Detail, string(ev.Before), string(ev.After)} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// record writes one event describing a change from before to after.
// Either snapshot may be nil.
func (r *AuditRecorder) record(
	ctx context.Context,
	action types.AuditAction,
	actor types.Actor,
	requestID string,
	before, after *types.AccessRequest,
	at time.Time,
	detail string,
) error {
	ev := types.AuditEvent{
		Module:     types.AuditModule,
		RequestID:  requestID,
		ActorID:    actor.ID,
		Checkpoint: actor.Checkpoint,
		Action:     action,
		Timestamp:  at,
		Before:     snapshot(before),
		After:      snapshot(after),
		Detail:     detail,
	}
	_, err := r.Append(ctx, ev)
	return err
}

func snapshot(req *types.AccessRequest) json.RawMessage {
	if req == nil {
		return nil
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	return b
}

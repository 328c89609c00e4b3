package store

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// AuditStore is an append-only log of audit events.
type AuditStore interface {
	// Append assigns ev.ID (if empty) and ev.Seq and returns the ID.
	Append(ctx context.Context, ev types.AuditEvent) (string, error)
	// Recent returns up to limit of the newest events in append order
	// (oldest of the window first).
	Recent(ctx context.Context, limit int) ([]types.AuditEvent, error)
}

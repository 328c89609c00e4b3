package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// MutateFn checks a precondition against the current state of a request
// and applies a change to it in place.  Returning an error aborts the
// update and leaves the stored request untouched.
//
// Stores may call a MutateFn more than once when a concurrent writer wins
// the race, so it must be free of side effects beyond req.
type MutateFn func(req *types.AccessRequest) error

// RequestFilter narrows ListByFilter.  Zero-value fields are ignored.
type RequestFilter struct {
	ResidentID  string
	Category    types.Category
	Status      types.Status
	ActiveOnly  bool
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
}

// Match reports whether req satisfies f.  Stores that cannot express a
// predicate server-side apply it after fetching.
func (f RequestFilter) Match(req types.AccessRequest) bool {
	if f.ResidentID != "" && req.ResidentID != f.ResidentID {
		return false
	}
	if f.Category != "" && req.Category != f.Category {
		return false
	}
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	if f.ActiveOnly && !req.Active() {
		return false
	}
	if !f.CreatedFrom.IsZero() && req.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && req.CreatedAt.After(f.CreatedTo) {
		return false
	}
	return true
}

// RequestStore persists access requests.  Requests are never deleted.
type RequestStore interface {
	// Create assigns req.ID if empty and stores req with Version 1.
	Create(ctx context.Context, req types.AccessRequest) (types.AccessRequest, error)
	GetByID(ctx context.Context, id string) (types.AccessRequest, error)
	// UpdateIf applies fn to the current request and writes the result
	// only if no other writer committed in between.
	UpdateIf(ctx context.Context, id string, fn MutateFn) (types.AccessRequest, error)
	// ListByFilter returns matching requests, newest first.
	ListByFilter(ctx context.Context, f RequestFilter) ([]types.AccessRequest, error)
}

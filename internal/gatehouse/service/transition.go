package service

import (
	"context"
	"strings"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// transition runs a conditional update and returns the request as it was
// just before the winning write alongside the stored result.
func transition(
	ctx context.Context,
	rs store.RequestStore,
	requestID string,
	fn store.MutateFn,
) (before, after types.AccessRequest, err error) {
	after, err = rs.UpdateIf(ctx, requestID, func(req *types.AccessRequest) error {
		snap := req.Clone()
		if err := fn(req); err != nil {
			return err
		}
		before = snap
		return nil
	})
	return before, after, err
}

func personAt(req *types.AccessRequest, index int) (*types.Person, error) {
	if index < 0 || index >= len(req.Persons) {
		return nil, ErrPersonNotFound
	}
	return &req.Persons[index], nil
}

func normalizeActor(a types.Actor) types.Actor {
	a.ID = strings.TrimSpace(a.ID)
	a.Checkpoint = strings.TrimSpace(a.Checkpoint)
	return a
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// RequestStore is an in-memory RequestStore for tests and dev.  The mutex
// makes every UpdateIf a compare-and-set.
type RequestStore struct {
	mu   sync.Mutex
	data map[string]types.AccessRequest
}

func NewRequestStore() *RequestStore {
	return &RequestStore{data: make(map[string]types.AccessRequest)}
}

func (s *RequestStore) Create(_ context.Context, req types.AccessRequest) (types.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Version = 1
	s.data[req.ID] = req.Clone()
	return req.Clone(), nil
}

func (s *RequestStore) GetByID(_ context.Context, id string) (types.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.data[id]
	if !ok {
		return types.AccessRequest{}, store.ErrNotFound
	}
	return req.Clone(), nil
}

func (s *RequestStore) UpdateIf(_ context.Context, id string, fn store.MutateFn) (types.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[id]
	if !ok {
		return types.AccessRequest{}, store.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return types.AccessRequest{}, err
	}
	next.ID = cur.ID
	next.Version = cur.Version + 1
	s.data[id] = next.Clone()
	return next, nil
}

func (s *RequestStore) ListByFilter(_ context.Context, f store.RequestFilter) ([]types.AccessRequest, error) {
	s.mu.Lock()
	out := make([]types.AccessRequest, 0, len(s.data))
	for _, req := range s.data {
		if f.Match(req) {
			out = append(out, req.Clone())
		}
	}
	s.mu.Unlock()

	sortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func sortNewestFirst(reqs []types.AccessRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID > reqs[j].ID
	})
}

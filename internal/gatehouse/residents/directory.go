// Package residents adapts the external member directory.  The access
// subsystem only ever reads from it to decorate requests and exports.
package residents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// ErrUnknownResident is returned when the directory has no such member.
var ErrUnknownResident = errors.New("unknown resident")

type Directory interface {
	ResolveResident(ctx context.Context, id string) (types.Resident, error)
}

// Static is a fixed in-memory directory, loaded from a JSON export of the
// member roll or built directly in tests.
type Static struct {
	mu        sync.RWMutex
	residents map[string]types.Resident
}

func NewStatic(rs ...types.Resident) *Static {
	s := &Static{residents: make(map[string]types.Resident, len(rs))}
	for _, r := range rs {
		s.residents[r.ID] = r
	}
	return s
}

// LoadStatic reads a JSON array of residents from path.
func LoadStatic(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read residents file: %w", err)
	}
	var rs []types.Resident
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("parse residents file: %w", err)
	}
	return NewStatic(rs...), nil
}

func (s *Static) ResolveResident(_ context.Context, id string) (types.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residents[strings.TrimSpace(id)]
	if !ok {
		return types.Resident{}, ErrUnknownResident
	}
	return r, nil
}

// ResolveAll resolves every distinct id, skipping unknown residents.  Other
// directory failures are returned.
func ResolveAll(ctx context.Context, d Directory, ids []string) (map[string]types.Resident, error) {
	out := make(map[string]types.Resident, len(ids))
	if d == nil {
		return out, nil
	}
	for _, id := range ids {
		if _, done := out[id]; done || id == "" {
			continue
		}
		r, err := d.ResolveResident(ctx, id)
		if errors.Is(err, ErrUnknownResident) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, nil
}

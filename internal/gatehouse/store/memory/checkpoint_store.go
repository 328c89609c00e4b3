package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

type CheckpointStore struct {
	mu    sync.RWMutex
	known map[string]struct{}
	seen  map[string]time.Time
}

func NewCheckpointStore(knownCheckpoints []string) *CheckpointStore {
	k := make(map[string]struct{}, len(knownCheckpoints))
	for _, c := range knownCheckpoints {
		c = strings.TrimSpace(c)
		if c != "" {
			k[c] = struct{}{}
		}
	}
	return &CheckpointStore{
		known: k,
		seen:  make(map[string]time.Time),
	}
}

func (s *CheckpointStore) IsKnown(_ context.Context, checkpointID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[checkpointID]
	return ok, nil
}

func (s *CheckpointStore) MarkSeen(_ context.Context, checkpointID string, _ bool, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[checkpointID] = t
	return nil
}

// LastSeen returns when the checkpoint was last heard from.
func (s *CheckpointStore) LastSeen(checkpointID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.seen[checkpointID]
	return t, ok
}

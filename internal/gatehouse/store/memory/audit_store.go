package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// AuditStore is an in-memory append-only audit log.
type AuditStore struct {
	mu     sync.Mutex
	seq    int64
	events []types.AuditEvent
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, ev types.AuditEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	s.seq++
	ev.Seq = s.seq
	s.events = append(s.events, ev)
	return ev.ID, nil
}

func (s *AuditStore) Recent(_ context.Context, limit int) ([]types.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	out := make([]types.AuditEvent, len(s.events)-start)
	copy(out, s.events[start:])
	return out, nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *AuditStore) Events() []types.AuditEvent {
	out, _ := s.Recent(context.Background(), 0)
	return out
}

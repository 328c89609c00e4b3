package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

const testOverrideCode = "sunday-4711"

// March 2026: the 2nd is a Monday, the 8th a Sunday.
var (
	tuesday0900 = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	sunday0300  = time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC)
)

var (
	desk    = types.Actor{ID: "guard-ana"}
	gateA   = types.Actor{ID: "guard-luis", Checkpoint: "gate-a"}
	gateB   = types.Actor{ID: "guard-rosa", Checkpoint: "gate-b"}
	visitor = service.PersonInput{Name: "Marta Gil", DocumentID: "DNI-100"}
)

// clock is a settable test clock that moves forward one second per read
// so consecutive operations get distinct, ordered timestamps.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type env struct {
	requests *memory.RequestStore
	audit    *memory.AuditStore
	recorder *service.AuditRecorder
	clock    *clock
	auth     *service.AuthorizationService
	tracker  *service.TrackerService
	qr       *service.QRVerifier
}

func newEnv(t *testing.T, start time.Time) *env {
	t.Helper()

	e := &env{
		requests: memory.NewRequestStore(),
		audit:    memory.NewAuditStore(),
		clock:    &clock{now: start},
	}
	e.recorder = service.NewAuditRecorder(e.audit, 0, logger.NewNop())

	deps := service.Deps{
		Requests: e.requests,
		Policy:   policy.NewEngine(time.UTC, testOverrideCode),
		Audit:    e.recorder,
		Log:      logger.NewNop(),
		Now:      e.clock.Now,
	}
	e.auth = service.NewAuthorizationService(deps)
	e.tracker = service.NewTrackerService(deps)
	e.qr = service.NewQRVerifier(deps, e.tracker)
	return e
}

func (e *env) create(t *testing.T, cat types.Category, persons ...service.PersonInput) types.AccessRequest {
	t.Helper()
	if len(persons) == 0 {
		persons = []service.PersonInput{visitor}
	}
	req, err := e.auth.Create(t.Context(), service.CreateInput{
		Category:           cat,
		AccessMode:         types.AccessModePedestrian,
		ResidentID:         "res-1",
		DestinationAddress: "Lote 14",
		Persons:            persons,
	}, desk)
	require.NoError(t, err)
	return req
}

func (e *env) createAuthorized(t *testing.T, cat types.Category, persons ...service.PersonInput) types.AccessRequest {
	t.Helper()
	req := e.create(t, cat, persons...)
	got, err := e.auth.Authorize(t.Context(), req.ID, desk, "")
	require.NoError(t, err)
	return got
}

func (e *env) actions() []types.AuditAction {
	var out []types.AuditAction
	for _, ev := range e.audit.Events() {
		out = append(out, ev.Action)
	}
	return out
}

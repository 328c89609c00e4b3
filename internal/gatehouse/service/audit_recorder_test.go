package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

type brokenAuditStore struct{}

func (brokenAuditStore) Append(context.Context, types.AuditEvent) (string, error) {
	return "", errors.Join(store.ErrUnavailable, errors.New("disk full"))
}

func (brokenAuditStore) Recent(context.Context, int) ([]types.AuditEvent, error) {
	return nil, store.ErrUnavailable
}

func TestAudit_CompleteAndOrdered(t *testing.T) {
	e := newEnv(t, tuesday0900)
	ctx := t.Context()

	// Eight successful mutations.
	req := e.createAuthorized(t, types.CategoryVisitor, family[:2]...)
	for i := 0; i < 2; i++ {
		_, err := e.tracker.RegisterEntry(ctx, req.ID, i, gateA)
		require.NoError(t, err)
		_, err = e.tracker.RegisterExit(ctx, req.ID, i, gateB)
		require.NoError(t, err)
	}
	_, err := e.tracker.FinalizeGroup(ctx, req.ID, desk)
	require.NoError(t, err)
	other := e.create(t, types.CategoryVisitor)

	// Refusals write nothing.
	_, err = e.tracker.RegisterEntry(ctx, other.ID, 0, gateA)
	require.Error(t, err)
	_, err = e.auth.Authorize(ctx, req.ID, desk, "")
	require.Error(t, err)

	got, err := e.recorder.Query(ctx, service.AuditFilter{Module: types.AuditModule})
	require.NoError(t, err)
	require.Len(t, got, 8)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "event %d out of order", i)
		assert.Greater(t, got[i].Seq, got[i-1].Seq)
	}
}

func TestAudit_QueryFilters(t *testing.T) {
	e := newEnv(t, tuesday0900)
	ctx := t.Context()

	a := e.createAuthorized(t, types.CategoryVisitor)
	b := e.create(t, types.CategoryVisitor, service.PersonInput{Name: "Zoe Quintana", DocumentID: "Q-77"})
	_, err := e.tracker.RegisterEntry(ctx, a.ID, 0, gateA)
	require.NoError(t, err)

	byReq, err := e.recorder.Query(ctx, service.AuditFilter{RequestID: a.ID})
	require.NoError(t, err)
	assert.Len(t, byReq, 3)

	byActor, err := e.recorder.Query(ctx, service.AuditFilter{ActorID: gateA.ID})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, types.ActionPersonEntered, byActor[0].Action)

	byAction, err := e.recorder.Query(ctx, service.AuditFilter{Action: types.ActionCreated})
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	byText, err := e.recorder.Query(ctx, service.AuditFilter{FreeText: "quintana"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, b.ID, byText[0].RequestID)

	byTextAction, err := e.recorder.Query(ctx, service.AuditFilter{FreeText: "PERSON_ENTERED"})
	require.NoError(t, err)
	assert.Len(t, byTextAction, 1)

	window, err := e.recorder.Query(ctx, service.AuditFilter{
		From: tuesday0900.Add(time.Second),
		To:   tuesday0900.Add(2 * time.Second),
	})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	limited, err := e.recorder.Query(ctx, service.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, types.ActionPersonEntered, limited[0].Action)

	none, err := e.recorder.Query(ctx, service.AuditFilter{Module: "billing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAudit_BoundedWindow(t *testing.T) {
	st := memory.NewAuditStore()
	rec := service.NewAuditRecorder(st, 3, logger.NewNop())
	ctx := t.Context()

	for i := 0; i < 5; i++ {
		_, err := rec.Append(ctx, types.AuditEvent{ActorID: "a", Action: types.ActionCreated})
		require.NoError(t, err)
	}

	got, err := rec.Query(ctx, service.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Seq)
	assert.Equal(t, types.AuditModule, got[0].Module)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestAudit_StoreFailureSurfaces(t *testing.T) {
	rec := service.NewAuditRecorder(brokenAuditStore{}, 0, logger.NewNop())

	_, err := rec.Append(t.Context(), types.AuditEvent{Action: types.ActionCreated})
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)

	_, err = rec.Query(t.Context(), service.AuditFilter{})
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
}

func TestAudit_FailedAppendFailsTheOperation(t *testing.T) {
	deps := service.Deps{
		Requests: memory.NewRequestStore(),
		Audit:    service.NewAuditRecorder(brokenAuditStore{}, 0, logger.NewNop()),
	}
	auth := service.NewAuthorizationService(deps)

	_, err := auth.Create(t.Context(), service.CreateInput{
		Category:   types.CategoryVisitor,
		AccessMode: types.AccessModePedestrian,
		ResidentID: "res-1",
		Persons:    []service.PersonInput{visitor},
	}, desk)
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
}

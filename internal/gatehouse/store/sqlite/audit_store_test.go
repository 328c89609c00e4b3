package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlitestore "github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

func TestAuditStore_AppendAndRecent_InAppendOrder(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	actions := []types.AuditAction{types.ActionCreated, types.ActionAuthorized, types.ActionPersonEntered}
	for i, a := range actions {
		id, err := as.Append(ctx, types.AuditEvent{
			Module:    types.AuditModule,
			RequestID: "req-1",
			ActorID:   "guard-7",
			Action:    a,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			After:     json.RawMessage(`{"status":"authorized"}`),
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}

	got, err := as.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.ActionAuthorized, got[0].Action)
	assert.Equal(t, types.ActionPersonEntered, got[1].Action)
	assert.Less(t, got[0].Seq, got[1].Seq)
	assert.JSONEq(t, `{"status":"authorized"}`, string(got[1].After))
	assert.True(t, base.Add(2*time.Second).Equal(got[1].Timestamp))
}

func TestAuditStore_RejectsUpdateAndDelete(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	_, err := as.Append(ctx, types.AuditEvent{
		Module:  types.AuditModule,
		ActorID: "guard-7",
		Action:  types.ActionQRRejected,
	})
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `UPDATE audit_events SET actor_id = 'someone-else'`)
	assert.Error(t, err)
	_, err = conn.ExecContext(ctx, `DELETE FROM audit_events`)
	assert.Error(t, err)

	got, err := as.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "guard-7", got[0].ActorID)
}

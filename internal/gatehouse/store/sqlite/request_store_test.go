package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

var errNotPending = errors.New("not pending")

func sampleRequest(resident string, createdAt time.Time) types.AccessRequest {
	return types.AccessRequest{
		Category:           types.CategoryWorker,
		AccessMode:         types.AccessModeVehicular,
		Plate:              "ABC-123",
		ResidentID:         resident,
		DestinationAddress: "Lot 14",
		Persons: []types.Person{
			{Name: "Ana Quispe", DocumentID: "40112233", EntryState: types.EntryNotEntered},
			{Name: "Luis Rojas", DocumentID: "40998877", EntryState: types.EntryNotEntered},
		},
		Status:    types.StatusPending,
		CreatedAt: createdAt,
	}
}

func authorize(req *types.AccessRequest) error {
	if req.Status != types.StatusPending {
		return errNotPending
	}
	req.Status = types.StatusAuthorized
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Create / GetByID
// ═══════════════════════════════════════════════════════════════════════════

func TestRequestStore_CreateAndGet_RoundTripsPersons(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	created, err := rs.Create(ctx, sampleRequest("res-1", time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	got, err := rs.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", got.Plate)
	require.Len(t, got.Persons, 2)
	assert.Equal(t, "Luis Rojas", got.Persons[1].Name)
	assert.Equal(t, types.EntryNotEntered, got.Persons[1].EntryState)
}

func TestRequestStore_GetByID_NotFound(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))

	_, err := rs.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ═══════════════════════════════════════════════════════════════════════════
// UpdateIf
// ═══════════════════════════════════════════════════════════════════════════

func TestRequestStore_UpdateIf_AppliesAndBumpsVersion(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	created, err := rs.Create(ctx, sampleRequest("res-1", time.Now().UTC()))
	require.NoError(t, err)

	updated, err := rs.UpdateIf(ctx, created.ID, authorize)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAuthorized, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	var status string
	require.NoError(t, conn.QueryRow(
		`SELECT status FROM access_requests WHERE request_id = ?`, created.ID,
	).Scan(&status))
	assert.Equal(t, "authorized", status)
}

func TestRequestStore_UpdateIf_PreconditionErrorLeavesRowUntouched(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	created, err := rs.Create(ctx, sampleRequest("res-1", time.Now().UTC()))
	require.NoError(t, err)
	_, err = rs.UpdateIf(ctx, created.ID, authorize)
	require.NoError(t, err)

	_, err = rs.UpdateIf(ctx, created.ID, authorize)
	assert.ErrorIs(t, err, errNotPending)
	assert.NotErrorIs(t, err, store.ErrUnavailable)

	got, err := rs.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestRequestStore_UpdateIf_CallerGivesUpMidTransaction(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))

	created, err := rs.Create(context.Background(), sampleRequest("res-1", time.Now().UTC()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	_, err = rs.UpdateIf(ctx, created.ID, func(req *types.AccessRequest) error {
		time.Sleep(60 * time.Millisecond)
		calls++
		return authorize(req)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	got, err := rs.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestRequestStore_UpdateIf_ConcurrentWritersOneWins(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	created, err := rs.Create(ctx, sampleRequest("res-1", time.Now().UTC()))
	require.NoError(t, err)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rs.UpdateIf(ctx, created.ID, authorize)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, errNotPending) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, rejected)
}

func TestRequestStore_UpdateIf_NotFound(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))

	_, err := rs.UpdateIf(context.Background(), "missing", authorize)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ═══════════════════════════════════════════════════════════════════════════
// ListByFilter
// ═══════════════════════════════════════════════════════════════════════════

func TestRequestStore_ListByFilter_ResidentNewestFirst(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	first, err := rs.Create(ctx, sampleRequest("res-1", base))
	require.NoError(t, err)
	second, err := rs.Create(ctx, sampleRequest("res-1", base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = rs.Create(ctx, sampleRequest("res-2", base.Add(2*time.Hour)))
	require.NoError(t, err)

	got, err := rs.ListByFilter(ctx, store.RequestFilter{ResidentID: "res-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestRequestStore_ListByFilter_ActiveOnly(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	pending, err := rs.Create(ctx, sampleRequest("res-1", time.Now().UTC()))
	require.NoError(t, err)
	active, err := rs.Create(ctx, sampleRequest("res-1", time.Now().UTC()))
	require.NoError(t, err)
	_, err = rs.UpdateIf(ctx, active.ID, authorize)
	require.NoError(t, err)

	got, err := rs.ListByFilter(ctx, store.RequestFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
	assert.NotEqual(t, pending.ID, got[0].ID)
}

func TestRequestStore_ListByFilter_LimitCountsMatchedRows(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	older, err := rs.Create(ctx, sampleRequest("res-1", base.Add(time.Millisecond)))
	require.NoError(t, err)
	newer, err := rs.Create(ctx, sampleRequest("res-1", base.Add(5*time.Millisecond)))
	require.NoError(t, err)
	// Same millisecond column as the upper bound, but after it.
	_, err = rs.Create(ctx, sampleRequest("res-1", base.Add(10*time.Millisecond+900*time.Microsecond)))
	require.NoError(t, err)

	got, err := rs.ListByFilter(ctx, store.RequestFilter{
		CreatedTo: base.Add(10*time.Millisecond + 500*time.Microsecond),
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestRequestStore_ListByFilter_EmptyIsNotNil(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRequestStore(conn, newTestWriter(t, conn))

	got, err := rs.ListByFilter(context.Background(), store.RequestFilter{ResidentID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

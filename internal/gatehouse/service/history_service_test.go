package service_test

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/residents"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

type downDirectory struct{}

func (downDirectory) ResolveResident(context.Context, string) (types.Resident, error) {
	return types.Resident{}, errors.New("directory offline")
}

func newHistory(e *env, dir residents.Directory) *service.HistoryService {
	return service.NewHistoryService(e.requests, dir, logger.NewNop())
}

func directory() *residents.Static {
	return residents.NewStatic(
		types.Resident{ID: "res-1", Name: "Carmen Vega", MemberCode: "M-0142"},
		types.Resident{ID: "res-2", Name: "Jorge Paz", MemberCode: "M-0009"},
	)
}

func TestHistory_ListByResidentAndActive(t *testing.T) {
	e := newEnv(t, tuesday0900)
	ctx := t.Context()
	h := newHistory(e, directory())

	first := e.createAuthorized(t, types.CategoryVisitor)
	second := e.create(t, types.CategoryWorker, crew...)
	_, err := e.auth.Create(ctx, service.CreateInput{
		Category:   types.CategorySupplier,
		AccessMode: types.AccessModeVehicular,
		Plate:      "TRK-9",
		ResidentID: "res-2",
		Persons:    []service.PersonInput{{Name: "Driver", DocumentID: "S-1"}},
	}, desk)
	require.NoError(t, err)

	mine, err := h.ListByResident(ctx, "res-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	active, err := h.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	_, err = e.tracker.RegisterEntry(ctx, first.ID, 0, gateA)
	require.NoError(t, err)
	_, err = e.tracker.RegisterExit(ctx, first.ID, 0, gateA)
	require.NoError(t, err)
	_, err = e.tracker.FinalizeGroup(ctx, first.ID, desk)
	require.NoError(t, err)

	active, err = h.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = h.ListByResident(ctx, " ")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestHistory_Search(t *testing.T) {
	e := newEnv(t, tuesday0900)
	ctx := t.Context()
	h := newHistory(e, directory())

	worker := e.create(t, types.CategoryWorker, crew...)
	supplier, err := e.auth.Create(ctx, service.CreateInput{
		Category:   types.CategorySupplier,
		AccessMode: types.AccessModeVehicular,
		Plate:      "trk-9",
		ResidentID: "res-2",
		Persons:    []service.PersonInput{{Name: "Driver", DocumentID: "S-1"}},
	}, desk)
	require.NoError(t, err)

	cases := map[string][]string{
		"inés":   {worker.ID},
		"w-2":    {worker.ID},
		"TRK":    {supplier.ID},
		"res-":   {supplier.ID, worker.ID},
		"vega":   {worker.ID},
		"m-0009": {supplier.ID},
		"nobody": {},
	}
	for term, want := range cases {
		got, err := h.Search(ctx, term)
		require.NoError(t, err, term)
		ids := make([]string, 0, len(got))
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, want, ids, "term %q", term)
	}

	_, err = h.Search(ctx, "  ")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestHistory_SearchWithDirectoryDown(t *testing.T) {
	e := newEnv(t, tuesday0900)
	h := newHistory(e, downDirectory{})
	req := e.create(t, types.CategoryWorker, crew...)

	got, err := h.Search(t.Context(), "raúl")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, req.ID, got[0].ID)
}

func TestExportCSV(t *testing.T) {
	entry := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(8 * time.Hour)

	reqs := []types.AccessRequest{
		{
			Category:   types.CategoryWorker,
			Plate:      "ABC-1",
			ResidentID: "res-1",
			Status:     types.StatusAuthorized,
			Persons: []types.Person{
				{Name: "Raúl Soto", DocumentID: "W-1", EntryAt: &entry, ExitAt: &exit, EntryCheckpoint: "gate-a"},
				{Name: "Inés, \"la jefa\" Mora", DocumentID: "W-2"},
			},
		},
		{
			Category:   types.CategoryVisitor,
			ResidentID: "res-unknown",
			Status:     types.StatusDenied,
			Persons:    []types.Person{{Name: "Nico", Minor: true}},
		},
		{Category: types.CategoryVisitor, ResidentID: "res-1"},
	}
	known := map[string]types.Resident{"res-1": {ID: "res-1", Name: "Carmen Vega", MemberCode: "M-0142"}}

	out, err := service.ExportCSV(reqs, known)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"type", "name", "document", "plate", "resident", "resident_code", "entry", "exit", "status", "checkpoint"}, rows[0])
	assert.Equal(t, []string{"worker", "Raúl Soto", "W-1", "ABC-1", "Carmen Vega", "M-0142",
		"2026-03-03T09:00:00Z", "2026-03-03T17:00:00Z", "authorized", "gate-a"}, rows[1])
	assert.Equal(t, "Inés, \"la jefa\" Mora", rows[2][1])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, []string{"visitor", "Nico", "", "", "res-unknown", "", "", "", "denied", ""}, rows[3])
}

func TestHistory_Export(t *testing.T) {
	e := newEnv(t, tuesday0900)
	ctx := t.Context()
	h := newHistory(e, directory())

	e.createAuthorized(t, types.CategoryVisitor)
	list, err := h.ListByResident(ctx, "res-1")
	require.NoError(t, err)

	out, err := h.Export(ctx, list)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Carmen Vega,M-0142")

	_, err = newHistory(e, downDirectory{}).Export(ctx, list)
	assert.Error(t, err)
}

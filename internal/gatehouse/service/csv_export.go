package service

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

var csvHeader = []string{
	"type", "name", "document", "plate", "resident", "resident_code",
	"entry", "exit", "status", "checkpoint",
}

// ExportCSV writes one row per person in input order.  Residents missing
// from the map fall back to their id with an empty code.  It does no I/O.
func ExportCSV(requests []types.AccessRequest, residents map[string]types.Resident) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range requests {
		res, ok := residents[r.ResidentID]
		residentName := r.ResidentID
		if ok && res.Name != "" {
			residentName = res.Name
		}

		for _, p := range r.Persons {
			row := []string{
				string(r.Category),
				p.Name,
				p.DocumentID,
				r.Plate,
				residentName,
				res.MemberCode,
				formatTime(p.EntryAt),
				formatTime(p.ExitAt),
				string(r.Status),
				p.EntryCheckpoint,
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// RequestStore keeps each request as a JSON document with its filterable
// fields mirrored into columns.
type RequestStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRequestStore(db *sql.DB, writer *dbpkg.Worker) *RequestStore {
	return &RequestStore{db: db, writer: writer}
}

func (s *RequestStore) Create(ctx context.Context, req types.AccessRequest) (types.AccessRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Version = 1

	doc, err := json.Marshal(req)
	if err != nil {
		return types.AccessRequest{}, fmt.Errorf("Create marshal: %w", err)
	}
	nowMs := time.Now().UTC().UnixMilli()

	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO access_requests(
  request_id, category, access_mode, plate, resident_id, status,
  group_final_exit, created_at_ms, updated_at_ms, version, doc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			req.ID, string(req.Category), string(req.AccessMode), nullString(req.Plate),
			req.ResidentID, string(req.Status), boolInt(req.GroupFinalExit),
			req.CreatedAt.UTC().UnixMilli(), nowMs, req.Version, string(doc),
		)
		if err != nil {
			return fmt.Errorf("Create insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.AccessRequest{}, unavailable("Create", err)
	}
	return req, nil
}

func (s *RequestStore) GetByID(ctx context.Context, id string) (types.AccessRequest, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
SELECT doc FROM access_requests WHERE request_id = ?;
`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AccessRequest{}, store.ErrNotFound
	}
	if err != nil {
		return types.AccessRequest{}, unavailable("GetByID query", err)
	}
	return decodeRequest(doc)
}

// UpdateIf runs fn inside the writer's transaction and guards the write
// with the version that was read, so a concurrent commit turns into
// store.ErrConflict instead of a lost update.
func (s *RequestStore) UpdateIf(ctx context.Context, id string, fn store.MutateFn) (types.AccessRequest, error) {
	var out types.AccessRequest

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var doc string
		var version int64
		err := tx.QueryRowContext(ctx, `
SELECT doc, version FROM access_requests WHERE request_id = ?;
`, id).Scan(&doc, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("UpdateIf select: %w", err)
		}

		req, err := decodeRequest(doc)
		if err != nil {
			return err
		}
		req.Version = version

		if err := fn(&req); err != nil {
			return rejected{err}
		}
		req.ID = id
		req.Version = version + 1

		next, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("UpdateIf marshal: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
UPDATE access_requests
SET plate = ?,
    status = ?,
    group_final_exit = ?,
    updated_at_ms = ?,
    version = ?,
    doc = ?
WHERE request_id = ? AND version = ?;
`,
			nullString(req.Plate), string(req.Status), boolInt(req.GroupFinalExit),
			time.Now().UTC().UnixMilli(), req.Version, string(next), id, version,
		)
		if err != nil {
			return fmt.Errorf("UpdateIf update: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return store.ErrConflict
		}

		out = req
		return nil
	})

	var rj rejected
	switch {
	case errors.As(err, &rj):
		return types.AccessRequest{}, rj.err
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrConflict):
		return types.AccessRequest{}, err
	case err != nil:
		return types.AccessRequest{}, unavailable("UpdateIf", err)
	}
	return out, nil
}

func (s *RequestStore) ListByFilter(ctx context.Context, f store.RequestFilter) ([]types.AccessRequest, error) {
	var (
		where []string
		args  []any
	)
	if f.ResidentID != "" {
		where = append(where, "resident_id = ?")
		args = append(args, f.ResidentID)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ActiveOnly {
		where = append(where, "status = 'authorized' AND group_final_exit = 0")
	}
	if !f.CreatedFrom.IsZero() {
		where = append(where, "created_at_ms >= ?")
		args = append(args, f.CreatedFrom.UTC().UnixMilli())
	}
	if !f.CreatedTo.IsZero() {
		where = append(where, "created_at_ms <= ?")
		args = append(args, f.CreatedTo.UTC().UnixMilli())
	}

	q := "SELECT doc FROM access_requests"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at_ms DESC, request_id DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("ListByFilter query", err)
	}
	defer rows.Close()

	// The limit is applied after Match so boundary rows dropped below do
	// not shorten the page.
	out := []types.AccessRequest{}
	for rows.Next() {
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, unavailable("ListByFilter scan", err)
		}
		req, err := decodeRequest(doc)
		if err != nil {
			return nil, err
		}
		// Millisecond columns can admit boundary rows the exact
		// timestamps exclude.
		if f.Match(req) {
			out = append(out, req)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("ListByFilter rows", err)
	}
	return out, nil
}

// rejected carries a MutateFn error out of the writer transaction so it is
// returned as-is rather than wrapped as a store failure.
type rejected struct{ err error }

func (r rejected) Error() string { return r.err.Error() }
func (r rejected) Unwrap() error { return r.err }

func decodeRequest(doc string) (types.AccessRequest, error) {
	var req types.AccessRequest
	if err := json.Unmarshal([]byte(doc), &req); err != nil {
		return types.AccessRequest{}, fmt.Errorf("decode request doc: %w", err)
	}
	return req, nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

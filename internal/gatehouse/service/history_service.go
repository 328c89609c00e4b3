package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/residents"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

// HistoryService answers read-only questions about requests.  Results
// reflect what this process has written; other replicas may lag.
type HistoryService struct {
	requests  store.RequestStore
	directory residents.Directory
	log       logger.Logger
}

func NewHistoryService(rs store.RequestStore, dir residents.Directory, log logger.Logger) *HistoryService {
	if log == nil {
		log = logger.NewNop()
	}
	return &HistoryService{requests: rs, directory: dir, log: log}
}

func (s *HistoryService) Get(ctx context.Context, requestID string) (types.AccessRequest, error) {
	return s.requests.GetByID(ctx, strings.TrimSpace(requestID))
}

// ListByResident returns every request filed for residentID, newest first.
func (s *HistoryService) ListByResident(ctx context.Context, residentID string) ([]types.AccessRequest, error) {
	residentID = strings.TrimSpace(residentID)
	if residentID == "" {
		return nil, fmt.Errorf("%w: resident is required", ErrValidation)
	}
	return s.requests.ListByFilter(ctx, store.RequestFilter{ResidentID: residentID})
}

// ListActive returns authorized requests whose group has not been closed.
func (s *HistoryService) ListActive(ctx context.Context) ([]types.AccessRequest, error) {
	return s.requests.ListByFilter(ctx, store.RequestFilter{ActiveOnly: true})
}

// Search does a case-insensitive substring match over person names and
// documents, the plate, and the resident's id, name and member code.
func (s *HistoryService) Search(ctx context.Context, term string) ([]types.AccessRequest, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrValidation)
	}

	all, err := s.requests.ListByFilter(ctx, store.RequestFilter{})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ResidentID)
	}
	known, err := residents.ResolveAll(ctx, s.directory, ids)
	if err != nil {
		// Resident names are a convenience here; search the rest.
		s.log.Warn("resident directory unavailable during search", "error", err)
		known = nil
	}

	out := make([]types.AccessRequest, 0)
	for _, r := range all {
		if matchesRequest(r, known[r.ResidentID], needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchesRequest(r types.AccessRequest, res types.Resident, needle string) bool {
	fields := []string{r.Plate, r.ResidentID, res.Name, res.MemberCode}
	for _, p := range r.Persons {
		fields = append(fields, p.Name, p.DocumentID)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Export resolves the residents behind requests and renders the CSV.
func (s *HistoryService) Export(ctx context.Context, requests []types.AccessRequest) ([]byte, error) {
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ResidentID)
	}
	known, err := residents.ResolveAll(ctx, s.directory, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve residents: %w", err)
	}
	return ExportCSV(requests, known)
}

package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

type authorizeBody struct {
	OverrideCode string `json:"override_code"`
}

type denyBody struct {
	Reason string `json:"reason"`
}

type enterBody struct {
	Persons []int `json:"persons"`
}

type verifyBody struct {
	Token string `json:"token"`
}

type timestampBody struct {
	RequestID string    `json:"request_id"`
	Person    int       `json:"person"`
	At        time.Time `json:"at"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	req, err := s.authorization.Create(r.Context(), in, actorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleEvaluateRequest(w http.ResponseWriter, r *http.Request) {
	d, err := s.authorization.Evaluate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var body authorizeBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	req, err := s.authorization.Authorize(r.Context(), r.PathValue("id"), actorFrom(r), body.OverrideCode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	var body denyBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	req, err := s.authorization.Deny(r.Context(), r.PathValue("id"), actorFrom(r), body.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	idx, ok := personIndex(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	at, err := s.tracker.RegisterEntry(r.Context(), id, idx, actorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timestampBody{RequestID: id, Person: idx, At: at})
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	idx, ok := personIndex(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	at, err := s.tracker.RegisterExit(r.Context(), id, idx, actorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timestampBody{RequestID: id, Person: idx, At: at})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	req, err := s.tracker.FinalizeGroup(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleIssueQR(w http.ResponseWriter, r *http.Request) {
	token, err := s.qr.Issue(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyBody{Token: token})
}

func (s *Server) handleVerifyQR(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	v, err := s.qr.DecodeAndVerify(r.Context(), body.Token, actorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSelectAndEnter(w http.ResponseWriter, r *http.Request) {
	var body enterBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	res, err := s.qr.SelectAndEnter(r.Context(), r.PathValue("id"), body.Persons, actorFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.selectRequests(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.selectRequests(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out, err := s.history.Export(r.Context(), reqs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="access-requests.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// selectRequests picks the listing from exactly one of the resident,
// active or q query parameters.
func (s *Server) selectRequests(r *http.Request) ([]types.AccessRequest, error) {
	q := r.URL.Query()
	switch {
	case q.Get("resident") != "":
		return s.history.ListByResident(r.Context(), q.Get("resident"))
	case q.Get("q") != "":
		return s.history.Search(r.Context(), q.Get("q"))
	case isTrue(q.Get("active")):
		return s.history.ListActive(r.Context())
	}
	return nil, fmt.Errorf("%w: one of resident, q or active=true is required", service.ErrValidation)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.AuditFilter{
		Module:    q.Get("module"),
		RequestID: q.Get("request_id"),
		ActorID:   q.Get("actor_id"),
		Action:    types.AuditAction(q.Get("action")),
		FreeText:  q.Get("q"),
	}

	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeServiceError(w, r, fmt.Errorf("%w: bad limit", service.ErrValidation))
			return
		}
		f.Limit = n
	}

	events, err := s.audit.Query(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleEvaluatePolicy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat := types.Category(strings.ToLower(strings.TrimSpace(q.Get("category"))))
	if !cat.Valid() {
		s.writeServiceError(w, r, fmt.Errorf("%w: unknown category", service.ErrValidation))
		return
	}

	at, err := parseTimeParam(q.Get("at"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	writeJSON(w, http.StatusOK, s.policy.Evaluate(cat, at))
}

func personIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "person index must be an integer")
		return 0, false
	}
	return idx, true
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q is not RFC3339", service.ErrValidation, v)
	}
	return t, nil
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

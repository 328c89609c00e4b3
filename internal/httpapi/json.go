package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
)

// maxRequestBody caps JSON request bodies.  The largest payload, a group
// request with its persons, stays well under this.
const maxRequestBody = 64 << 10

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Fields  any    `json:"fields,omitempty"`
}

// readJSON decodes a single JSON object, rejecting unknown fields.  An
// empty body leaves dst untouched.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// statusFor maps a service error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case "validation_error", "invalid_token", "invalid_checkpoint_id":
		return http.StatusBadRequest
	case "invalid_override_code", "unknown_checkpoint":
		return http.StatusForbidden
	case "request_not_found", "person_not_found":
		return http.StatusNotFound
	case "already_decided", "request_not_authorized", "already_entered", "already_exited",
		"not_yet_entered", "not_all_exited", "group_finalized", "conflict":
		return http.StatusConflict
	case "store_unavailable", "canceled":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := service.Code(err)
	status := statusFor(code)

	body := errorBody{Error: code, Message: err.Error()}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		body.Fields = verrs
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = "unexpected server error"
		if status == http.StatusServiceUnavailable {
			body.Message = "storage temporarily unavailable"
		}
	}
	writeJSON(w, status, body)
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *core.ValidationError
		decErr  *decodeError
		noRoute *core.NoRouteError
	)
	switch {
	case errors.As(err, &decErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: decErr.Error()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Field: verr.Field})
	case errors.As(err, &noRoute), errors.Is(err, core.ErrNoRoute):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: core.ErrNoRoute.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, core.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorBody{Error: "already exists"})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeError marks a body that could not be parsed at all.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return fmt.Sprintf("invalid request body: %v", e.err) }
func (e *decodeError) Unwrap() error { return e.err }

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &decodeError{err: errors.New("empty body")}
		}
		return &decodeError{err: err}
	}
	return nil
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-quicknotif/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// CreatedEnvelope wraps schedule responses.
type CreatedEnvelope struct {
	ID string `json:"id"`
}

// ClearedEnvelope wraps clear-expired responses.
type ClearedEnvelope struct {
	Cleared int `json:"cleared"`
}

// AuthEnvelope wraps token responses.
type AuthEnvelope struct {
	Bearer string `json:"Bearer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PermissionEnvelope wraps permission-flow state responses.
type PermissionEnvelope struct {
	Step     string `json:"step"`
	Complete bool   `json:"complete"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrScheduleFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

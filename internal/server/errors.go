package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/repository"
	"github.com/workstack/workstack/internal/services/iam"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("server: encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeErrorFields(w, r, status, message, nil)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, status int, message string, fields map[string]string) {
	writeJSON(w, status, errorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
		Fields:    fields,
	})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything outside
// the known taxonomy is logged and surfaced as a generic 500 with no
// internal detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrBadCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())

	case errors.Is(err, iam.ErrMissingEmail),
		errors.Is(err, iam.ErrInvalidEmailFormat),
		errors.Is(err, iam.ErrProviderConflict):
		// Provisioning failures happen before a session exists and surface
		// through the login failure path.
		writeError(w, r, http.StatusUnauthorized, err.Error())

	case errors.Is(err, iam.ErrInsufficientRole),
		errors.Is(err, iam.ErrNotOwner):
		writeError(w, r, http.StatusForbidden, err.Error())

	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")

	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, r, http.StatusConflict, "resource already exists")

	default:
		log.Printf("server: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jongik-sv/kirosync/internal/errors"
	"github.com/jongik-sv/kirosync/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// readJSON reads and decodes a JSON request body.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return err
	}
	return nil
}

// requireMethod checks if the request method matches the expected method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// extractPathParts extracts path segments after removing a prefix.
func extractPathParts(urlPath, prefix string) []string {
	return strings.Split(strings.TrimPrefix(urlPath, prefix), "/")
}

// shortID truncates an id to 8 characters for logging.
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// writeWrappedError maps err's taxonomy (SPEC_FULL.md §7: validation->400,
// not-found->404, duplicate identity/version conflict->409, store
// unavailability->500, anything else->fallback) to an HTTP status, logs it, and writes the JSON
// error body — grounded on the teacher's writeWrappedError usage pattern in
// server/handlers.go.
func writeWrappedError(w http.ResponseWriter, log *zap.SugaredLogger, err error, msg string, fallback int) {
	status := fallback
	switch {
	case errors.Is(err, errors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrAlreadyExists), errors.Is(err, store.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrUnavailable):
		status = http.StatusInternalServerError
	}

	if log != nil {
		log.Errorw(msg, "error", err, "status", status)
	}
	writeError(w, status, msg+": "+err.Error())
}

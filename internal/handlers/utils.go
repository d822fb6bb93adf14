package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/store"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode JSON error response: %v", err)
	}
}

// writeStoreError maps a store error onto the HTTP error taxonomy:
// forbidden paths to 403, not-found to 404, empty group to 400 and
// everything else (storage faults included) to 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrForbiddenPath):
		writeJSONError(w, "access denied", http.StatusForbidden)
	case errors.Is(err, store.ErrGroupNotFound):
		writeJSONError(w, "group not found", http.StatusNotFound)
	case errors.Is(err, store.ErrFileNotFound):
		writeJSONError(w, "file not found", http.StatusNotFound)
	case errors.Is(err, store.ErrEmptyGroup):
		writeJSONError(w, "group has no files", http.StatusBadRequest)
	default:
		logging.Error("request failed: %v", err)
		writeJSONError(w, "internal storage error", http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes a small JSON request body into v.
func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

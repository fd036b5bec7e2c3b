package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/bnema/snatch/internal/infrastructure/logger"
)

// maxBodyBytes caps JSON request bodies; a URL plus two enum fields never
// needs more.
const maxBodyBytes = 2048

type apiError struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("encoding response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg, suggestion string) {
	writeJSON(w, status, apiError{Error: msg, Suggestion: suggestion})
}

func writeErrorDetails(w http.ResponseWriter, status int, msg, suggestion, details string) {
	writeJSON(w, status, apiError{Error: msg, Suggestion: suggestion, Details: details})
}

// decodeJSON enforces the JSON request contract: an application/json
// Content-Type, a body under maxBodyBytes and well-formed JSON. On violation
// it writes the error response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json", "")
		return false
	}

	if r.ContentLength > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Request too large", "The request payload is too large")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large", "The request payload is too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "")
		return false
	}
	return true
}

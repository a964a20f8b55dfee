package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/capability"
	"inferd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// mapServiceError maps well-known capability errors to HTTP status codes.
func mapServiceError(err error) (int, string) {
	switch {
	case capability.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case capability.IsUnavailable(err):
		return http.StatusServiceUnavailable, err.Error()
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode(), he.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

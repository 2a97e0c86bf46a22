// Package httputil centralizes JSON response writing for HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "chaintrace/pkg/domain-errors"
)

// statusByCode maps domain error codes onto HTTP status codes.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeIntegrity:          http.StatusConflict,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to an HTTP response. Internal errors omit
// the description so store and collaborator details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if msg := dErrors.MessageOf(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, status, body)
}

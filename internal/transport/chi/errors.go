package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// Stable machine-readable error codes.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeValidationBlocked = "validation_blocked"
	codeImportFailed      = "import_failed"
	codeNotFound          = "not_found"
	codeIngestUnavailable = "ingest_unavailable"
	codeInternalError     = "internal_error"
	codeUnauthorized      = "unauthorized"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrProgramNotFound,
		domain.ErrIngestUnavailable,
		domain.ErrImportParse,
		domain.ErrImportVersion,
		domain.ErrValidationBlocked,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationBlockedHandler maps a blocked override save that reaches the
// generic path (no issue payload available) to 422.
func validationBlockedHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidationBlocked) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, codeValidationBlocked, msg)
	return true
}

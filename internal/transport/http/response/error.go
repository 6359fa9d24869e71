package response

import (
	"errors"
	"net/http"

	"github.com/baechuer/account-service/internal/domain"
	appCtx "github.com/baechuer/account-service/internal/pkg/context"
)

// ErrorBody keeps the flat {success:false, error:"..."} shape the web and
// mobile clients already parse, plus a machine code.
type ErrorBody struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// StatusOverrides remaps specific error codes for one endpoint.
type StatusOverrides map[string]int

// WriteError converts a domain error into a consistent JSON HTTP error response.
// Non-domain errors are treated as internal errors (500) without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorWith(w, r, err, nil)
}

func WriteErrorWith(w http.ResponseWriter, r *http.Request, err error, overrides StatusOverrides) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"
	var meta map[string]string

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		code = de.Code
		message = de.Message
		meta = publicMeta(de)
	}
	if s, ok := overrides[code]; ok {
		status = s
	}

	WriteJSON(w, status, ErrorBody{
		Success:   false,
		Error:     message,
		Code:      code,
		Meta:      meta,
		RequestID: appCtx.GetRequestID(r.Context()),
	})
}

// publicMeta drops details that name storage keys on 5xx errors.
func publicMeta(de *domain.Error) map[string]string {
	if de.Kind == domain.KindInternal || de.Kind == domain.KindInfrastructure {
		return nil
	}
	return de.Meta
}

// statusFromKind maps domain error kinds to HTTP status codes.
func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		// duplicates are plain client errors on this API
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

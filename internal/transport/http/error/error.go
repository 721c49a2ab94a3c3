package error

import (
	"errors"
	"net/http"

	jsonResponse "vras/internal/transport/http/json"
	dErrors "vras/pkg/domain-errors"
)

// WriteError centralizes domain error translation to HTTP responses.
// Validation failures carry per-field errors in the envelope data; everything
// else maps to a status code and a flat message.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		if len(domainErr.Fields) > 0 {
			jsonResponse.Write(w, http.StatusUnprocessableEntity, "validation", domainErr.Fields)
			return
		}
		jsonResponse.Write(w, CodeToHTTPStatus(domainErr.Code), domainErr.Message, nil)
		return
	}

	// Fallback for unexpected errors.
	jsonResponse.Write(w, http.StatusInternalServerError, err.Error(), nil)
}

// CodeToHTTPStatus translates domain error codes to HTTP status codes.
func CodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeValidation, dErrors.CodeSubscriptionExpired, dErrors.CodeTenantInactive:
		return http.StatusUnprocessableEntity
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

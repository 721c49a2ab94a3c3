package request

import (
	"encoding/json"
	"net/http"

	httpError "vras/internal/transport/http/error"
	dErrors "vras/pkg/domain-errors"
	"vras/pkg/validation"
)

// Decode parses and validates a JSON request body. On failure it writes the
// error response and returns ok=false; handlers just return.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid request body."))
		return req, false
	}
	if err := validation.Validate(req); err != nil {
		httpError.WriteError(w, err)
		return req, false
	}
	return req, true
}

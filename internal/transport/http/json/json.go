package json

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape used by every endpoint:
// success derives from the 2xx status range.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Write serializes the standard response envelope.
func Write(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	envelope := Envelope{
		Success: status >= 200 && status < 300,
		Message: message,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

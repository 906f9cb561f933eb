package api

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON error envelope returned to clients.
type ErrorResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON body with the given status. It returns the
// encode error so callers can log it; headers are already sent by then.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Message: message})
}

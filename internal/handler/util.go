package handler

import (
	"encoding/json"
	"net/http"
)

// errorBody is the envelope every admin endpoint uses for failures.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body. Encoding failures are
// ignored: the status line is already on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends message in the standard error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON marshals v before touching the ResponseWriter so an encoding
// failure can still become a clean 500 instead of a half-written body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("response encode failed", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// errResponse is the envelope every non-2xx response carries.
type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

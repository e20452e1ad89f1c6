package middleware

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// errorBody mirrors the error envelope written by the API handlers.
type errorBody struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	body.Success = false
	if body.Error == "" {
		body.Error = body.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("middleware: encode error response", "error", err)
	}
}

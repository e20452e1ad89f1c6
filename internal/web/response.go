package web

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/JonMunkholm/plotapi/internal/ingest"
)

// UploadResponse is the body of a successful ingestion.
type UploadResponse struct {
	Success bool `json:"success"`
	*ingest.Result
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

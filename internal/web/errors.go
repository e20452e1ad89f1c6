package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/plotapi/internal/ingest"
	"github.com/JonMunkholm/plotapi/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch ingest.KindOf(err) {
	case ingest.KindBadInput, ingest.KindUnsupportedFormat, ingest.KindEmptyData:
		return http.StatusBadRequest
	case ingest.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ingest.KindParseFailure:
		return http.StatusUnprocessableEntity
	case ingest.KindFetchFailure:
		return http.StatusBadGateway
	case ingest.KindBusy:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err server-side and writes the JSON error envelope.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := ingest.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"kind", ingest.KindOf(err).String(),
		"code", userMsg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	writeJSONStatus(w, status, ErrorResponse{
		Success: false,
		Detail:  ingest.Detail(err),
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

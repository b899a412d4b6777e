package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request id; the client receives
// the core.MapError message and code. Submitters only ever see validation
// messages or a generic failure (core.MapCaptureError).

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/export"
	"github.com/JonMunkholm/leads/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case core.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, export.ErrTooManyExports):
		return http.StatusTooManyRequests
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, core.MapError(err))
}

// respondCaptureError is respondError for the public submission endpoint.
func respondCaptureError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, core.MapCaptureError(err))
}

func writeError(w http.ResponseWriter, r *http.Request, err error, msg core.UserMessage) {
	status := statusFor(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. The status code is derived from the error chain by statusFor
//  4. Error is mapped via core.MapError to get a user-friendly message
//  5. Technical error is logged with the request ID; the client gets JSON

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/slabstock/internal/core"
	"github.com/JonMunkholm/slabstock/internal/logging"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

var (
	errRateLimited   = errors.New("rate limit exceeded")
	errNoFile        = errors.New("no file provided")
	errInvalidBody   = errors.New("invalid request body")
	errInvalidParam  = errors.New("invalid query parameter")
	errMissingSlabID = core.ValidationError{Field: "slab_id", Message: "is required"}
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// respondError logs the technical error server-side and writes the mapped
// user message as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var ve core.ValidationError
	if errors.As(err, &ve) {
		// Field errors are safe to show verbatim.
		resp.Error = ve.Error()
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}

// statusFor maps an error chain to an HTTP status code.
func statusFor(err error) int {
	var ve core.ValidationError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, slab.ErrNotFound), errors.Is(err, core.ErrPreviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotConfirming):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnsupportedResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrEmptyFile), errors.Is(err, core.ErrUnreadableWorkbook), errors.Is(err, errNoFile),
		errors.Is(err, errInvalidBody), errors.Is(err, errInvalidParam):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, slab.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

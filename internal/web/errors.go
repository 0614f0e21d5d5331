package web

// errors.go turns service errors into JSON failure bodies.
//
// Every failure is {success:false, message, code[, action]}. The code always
// comes from core.MapError. Errors that carry caller-relevant detail (parse
// position, validation reason, request problem) use their own text as the
// message; everything else uses the catalogue message so driver errors never
// leak to clients. Catalogued errors are logged as their user message and
// code; uncatalogued ones are logged in full at error level with the request
// id.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/persons/internal/core"
	"github.com/JonMunkholm/persons/internal/logging"
)

var errRateLimited = errors.New("rate limit exceeded")

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		oversize *core.OversizeError
		maxBytes *http.MaxBytesError
		reqErr   *core.RequestError
		parseErr *core.ParseError
		valErr   *core.ValidationError
	)

	switch {
	case errors.As(err, &oversize), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr), errors.As(err, &parseErr), errors.As(err, &valErr),
		errors.Is(err, core.ErrEmptyUpdate), errors.Is(err, core.ErrNothingImported):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// messageFor returns the client-facing text for err.
func messageFor(err error, msg core.UserMessage) string {
	var (
		reqErr   *core.RequestError
		parseErr *core.ParseError
		valErr   *core.ValidationError
	)
	if errors.As(err, &reqErr) || errors.As(err, &parseErr) || errors.As(err, &valErr) {
		return err.Error()
	}
	return msg.Message
}

// writeError logs err and writes the matching failure body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
	)
	if core.IsUserFacing(err) {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "request error", "error", core.FormatUserError(err))
	} else {
		log.Error("unexpected request error", "error", err.Error(), "error_type", fmt.Sprintf("%T", err))
	}

	writeJSONStatus(w, status, errorResponse{
		Message: messageFor(err, msg),
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as a 200 response.
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

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fernwood/hearth/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpStatus(code apperror.Code) int {
	switch code {
	case apperror.Unauthenticated:
		return http.StatusUnauthorized
	case apperror.PermissionDenied:
		return http.StatusForbidden
	case apperror.NotFound:
		return http.StatusNotFound
	case apperror.InvalidArgument:
		return http.StatusBadRequest
	case apperror.FailedPrecondition, apperror.AlreadyExists:
		return http.StatusConflict
	case apperror.ResourceExhausted:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError maps the stable error code to an HTTP status and returns both
// in the body so clients can branch on the code, not the message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := apperror.CodeOf(err)
	status := httpStatus(code)
	if status >= 500 {
		logger.Error("internal error", "error", err)
		writeJSON(w, status, map[string]string{"code": string(apperror.Internal), "error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"code": string(code), "error": err.Error()})
}

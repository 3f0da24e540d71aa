// Package httputil holds the JSON response and query helpers shared by the admin API handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/missionhub/internal/errors"
)

// ErrorResponse is the body of every non-2xx admin API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorMapping struct {
	sentinel error
	status   int
	code     string
	// message replaces err.Error() in the body; empty means echo the error.
	message string
}

// Checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "A valid admin token is required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "The caller lacks the required capability"},
	{apperrors.ErrUnsupported, http.StatusNotImplemented, "unsupported_operation", "The operation is not available in this deployment"},
}

var internalError = errorMapping{
	status:  http.StatusInternalServerError,
	code:    "internal_error",
	message: "An internal error occurred",
}

// HandleErrorGin writes the JSON error for err. Domain sentinels map to 4xx/501;
// anything else becomes a 500 whose details stay in the log.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	m := internalError
	for _, candidate := range errorMappings {
		if apperrors.Is(err, candidate.sentinel) {
			m = candidate
			break
		}
	}

	message := m.message
	if message == "" {
		message = err.Error()
	}

	if logger != nil {
		level := slog.LevelWarn
		if m.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c, level, "admin api request failed",
			slog.Int("status_code", m.status),
			slog.String("error_code", m.code),
			slog.Any("error", err),
		)
	}

	c.JSON(m.status, ErrorResponse{Error: m.code, Message: message})
}

// HandleBadRequestGin answers 400 for unparsable bodies or query parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", err, logger)
}

// HandleValidationErrorGin answers 422 for requests that parse but fail validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", err, logger)
}

func writeClientError(c *gin.Context, status int, code string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("rejected admin api request", slog.String("error_code", code), slog.Any("error", err))
	}
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

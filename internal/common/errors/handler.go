package errors

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleHTTPError is installed as echo's HTTPErrorHandler for JSON routes.
func (h *ErrorHandler) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	stdErr, status := h.normalizeHTTPError(err)
	h.logError(c, stdErr, status)

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	if writeErr := c.JSON(status, map[string]interface{}{"error": stdErr}); writeErr != nil {
		h.logger.Error("failed to write error response", map[string]interface{}{
			"error": writeErr.Error(),
			"path":  c.Path(),
		})
	}
}

func (h *ErrorHandler) normalizeHTTPError(err error) (*StandardError, int) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := ErrCodeInternal
		switch httpErr.Code {
		case http.StatusBadRequest:
			code = ErrCodeInputParsingFailed
		case http.StatusNotFound:
			code = ErrCodeRecordNotFound
		case http.StatusTooManyRequests:
			code = ErrCodeRateLimited
		}
		msg := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok && s != "" {
			msg = s
		}
		return &StandardError{
			Code:      code,
			Message:   msg,
			Retryable: httpErr.Code == http.StatusTooManyRequests,
			Timestamp: time.Now().UTC(),
		}, httpErr.Code
	}

	stdErr := Normalize(err)
	return stdErr, HTTPStatus(stdErr.Code)
}

func (h *ErrorHandler) logError(c echo.Context, stdErr *StandardError, status int) {
	fields := map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"status":    status,
		"path":      c.Request().URL.Path,
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
		return
	}
	h.logger.Warn("request rejected", fields)
}

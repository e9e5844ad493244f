package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/jobs"
	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// statusFor maps a pipeline error to an HTTP status and a translation key.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrNotRunning):
		return http.StatusServiceUnavailable, "api.queue_full"
	case errors.Is(err, apperr.ErrUnsupportedImage):
		return http.StatusUnprocessableEntity, "api.unsupported_image"
	case errors.Is(err, apperr.ErrDataFormat):
		return http.StatusUnprocessableEntity, "api.invalid_request"
	case errors.Is(err, apperr.ErrResourceNotFound):
		return http.StatusNotFound, "api.not_found"
	default:
		return http.StatusInternalServerError, "api.processing_failed"
	}
}

// respondError writes err as a localized JSON error.
func (l *Localizer) respondError(c *gin.Context, err error) {
	status, key := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithComponent(logging.ComponentServer, "Request failed", "path", c.FullPath(), "error", err)
	} else {
		logging.DebugWithComponent(logging.ComponentServer, "Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}

	body := l.message(c, key)
	if status < http.StatusInternalServerError {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}

// respondKey writes a localized error without an underlying cause.
func (l *Localizer) respondKey(c *gin.Context, status int, key string) {
	c.JSON(status, l.message(c, key))
}

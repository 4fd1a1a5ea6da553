package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/models"
)

// respondData writes a success envelope.
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondList writes a success envelope with pagination metadata.
func respondList(c *gin.Context, data interface{}, pagination models.Pagination) {
	c.JSON(200, gin.H{"success": true, "data": data, "pagination": pagination})
}

// respondMessage writes a success envelope carrying only a message.
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// respondError maps an error to the taxonomy and writes the failure
// envelope. Unexpected errors are logged server-side and surfaced as a
// generic internal error, never leaked to the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			appErr = apperr.Unavailable("storage timeout", err)
		} else {
			appErr = apperr.Internal(err)
		}
	}

	status := apperr.HTTPStatus(appErr.Code)
	message := appErr.Message
	switch appErr.Code {
	case apperr.CodeInternal:
		message = "internal server error"
	case apperr.CodeUnavailable:
		message = "service temporarily unavailable"
	}
	if status >= 500 && logger != nil {
		logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}

	body := gin.H{"success": false, "error": message, "code": appErr.Code}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

// bindError wraps a body-binding failure as a validation error.
func bindError(err error) error {
	return apperr.Validation(err.Error(), nil)
}

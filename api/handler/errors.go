package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/models"
)

// respondError maps an APIError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		apiErr = models.NewAPIError(models.ErrCodeInternal, "internal error", err)
	}

	status := mapErrorToStatus(apiErr)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"path", c.FullPath(),
			"request_id", c.GetString("request_id"),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: apiErr.ToDetail()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.APIError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput,
		models.ErrCodeInvalidSpreadsheet,
		models.ErrCodeInvalidStartIndex:
		return http.StatusBadRequest // 400
	case models.ErrCodeTooManyProducts:
		return http.StatusRequestEntityTooLarge // 413
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeUpstream   = "UPSTREAM_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidation
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondError maps err onto a status and error envelope. Server-side
// failures are logged with the request-scoped logger.
func (h *Handler) respondError(c *gin.Context, op string, err error) {
	status, code := classify(err)

	log := logger.FromContextOr(c.Request.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", logger.Error(err), logger.Int("status", status))
	} else {
		log.Debug(op+" rejected", logger.Error(err), logger.Int("status", status))
	}

	c.JSON(status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		Timestamp: time.Now().UTC(),
	})
}

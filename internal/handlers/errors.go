package handlers

import (
	"errors"
	"net/http"

	"karigar-market/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Unknown errors become a generic 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, services.ErrPostingClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "posting is closed"})
	case errors.Is(err, services.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": "already submitted to this posting"})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "submission already decided"})
	case errors.Is(err, services.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskapp/backend/internal/service"
)

// writeError maps the service failure taxonomy onto status codes. The error
// message becomes the response body; unexpected failures are masked.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

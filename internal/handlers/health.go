package handlers

import (
	"net/http"
	"time"

	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles liveness checks. It deliberately never touches
// the manifest: health reflects process liveness, not manifest
// validity.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   models.Provider,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/middleware"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/cortexstack/connector-gateway/internal/registry"
	"github.com/gin-gonic/gin"
)

// ServiceMapHandler serves the signed public connector map.
type ServiceMapHandler struct {
	registry *registry.Registry
	metrics  *metrics.Registry
}

// NewServiceMapHandler creates a new service map handler
func NewServiceMapHandler(reg *registry.Registry, m *metrics.Registry) *ServiceMapHandler {
	return &ServiceMapHandler{registry: reg, metrics: m}
}

// Get handles GET /v1/connectors/service-map. Manifest load failures
// surface here as 503; nowhere else.
func (h *ServiceMapHandler) Get(c *gin.Context) {
	h.metrics.IncRequest("service_map")

	payload, err := h.registry.ServiceMap()
	if err != nil {
		resp := models.NewError("manifest_unavailable", err.Error())
		resp.RequestID = middleware.GetRequestID(c)
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	if ttl := h.registry.TTLSeconds(); ttl > 0 {
		c.Header("Cache-Control", fmt.Sprintf("max-age=%d", ttl))
	}
	c.JSON(http.StatusOK, payload)
}

package handlers

import (
	"net/http"

	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/middleware"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/gin-gonic/gin"
)

// MetricsHandler exposes the gateway counters in Prometheus text
// format.
type MetricsHandler struct {
	metrics *metrics.Registry
	enabled bool
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Registry, enabled bool) *MetricsHandler {
	return &MetricsHandler{metrics: m, enabled: enabled}
}

// Get handles GET /metrics
func (h *MetricsHandler) Get(c *gin.Context) {
	if !h.enabled {
		resp := models.NewError("metrics_disabled", "Metrics are disabled on this gateway")
		resp.RequestID = middleware.GetRequestID(c)
		c.JSON(http.StatusNotFound, resp)
		return
	}
	h.metrics.IncRequest("metrics")
	c.Data(http.StatusOK, "text/plain; version=0.0.4", []byte(h.metrics.Render()))
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/cortexstack/connector-gateway/internal/dispatch"
	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/middleware"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/cortexstack/connector-gateway/internal/proxy"
	"github.com/cortexstack/connector-gateway/internal/registry"
	"github.com/gin-gonic/gin"
)

// InvokeHandler proxies tool calls to connector backends through the
// validated instructor proxy.
type InvokeHandler struct {
	registry *registry.Registry
	metrics  *metrics.Registry
}

// NewInvokeHandler creates a new invoke handler
func NewInvokeHandler(reg *registry.Registry, m *metrics.Registry) *InvokeHandler {
	return &InvokeHandler{registry: reg, metrics: m}
}

// Post handles POST /v1/connectors/:id/invoke
func (h *InvokeHandler) Post(c *gin.Context) {
	h.metrics.IncRequest("invoke")
	connectorID := c.Param("id")

	payload := map[string]interface{}{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			h.fail(c, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object")
			return
		}
	}

	p, err := h.registry.AsyncInstructorProxy(connectorID)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrConnectorNotFound):
			h.fail(c, http.StatusNotFound, "connector_not_found", "Connector not found or not enabled")
		case errors.Is(err, registry.ErrUnavailable):
			h.fail(c, http.StatusServiceUnavailable, "manifest_unavailable", err.Error())
		default:
			h.fail(c, http.StatusBadGateway, "connector_misconfigured", err.Error())
		}
		return
	}

	var result models.ConnectorResult
	if err := p.InvokeAsync(c.Request.Context(), payload, &result); err != nil {
		h.dispatchError(c, connectorID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// dispatchError maps proxy/dispatch failures onto the gateway's
// upstream error statuses.
func (h *InvokeHandler) dispatchError(c *gin.Context, connectorID string, err error) {
	logger.WithFields(map[string]interface{}{
		"connector_id": connectorID,
		"error":        err.Error(),
	}).Error("Connector invocation failed")

	var upstreamErr *dispatch.UpstreamError
	if errors.As(err, &upstreamErr) {
		if upstreamErr.Timeout {
			h.fail(c, http.StatusGatewayTimeout, "upstream_timeout", upstreamErr.Error())
			return
		}
		h.fail(c, http.StatusBadGateway, "upstream_unavailable", upstreamErr.Error())
		return
	}

	var validationErr *proxy.ValidationError
	if errors.As(err, &validationErr) {
		h.fail(c, http.StatusBadGateway, "response_validation_failed", validationErr.Error())
		return
	}

	h.fail(c, http.StatusBadGateway, "upstream_unavailable", err.Error())
}

func (h *InvokeHandler) fail(c *gin.Context, status int, code, message string) {
	resp := models.NewError(code, message)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

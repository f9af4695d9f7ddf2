package handlers

import (
	"net/http"
	"time"

	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/registry"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// StreamHandler serves the live SSE status stream.
type StreamHandler struct {
	registry  *registry.Registry
	metrics   *metrics.Registry
	interval  time.Duration
	maxEvents int
}

// NewStreamHandler creates a stream handler. maxEvents bounds the
// number of frames per connection (0 = unbounded) so streams terminate
// deterministically under test.
func NewStreamHandler(reg *registry.Registry, m *metrics.Registry, interval time.Duration, maxEvents int) *StreamHandler {
	return &StreamHandler{
		registry:  reg,
		metrics:   m,
		interval:  interval,
		maxEvents: maxEvents,
	}
}

// statusFrame is one SSE data frame.
type statusFrame struct {
	Status     string `json:"status"`
	Sequence   int    `json:"sequence"`
	Connectors int    `json:"connectors"`
	Timestamp  string `json:"timestamp"`
}

// Get handles GET /v1/connectors/stream. Frames are emitted every tick
// until the client disconnects or the event budget is spent.
func (h *StreamHandler) Get(c *gin.Context) {
	h.metrics.IncRequest("stream")
	h.metrics.AddSSEClient(1)
	defer h.metrics.AddSSEClient(-1)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

	for sequence := 1; ; sequence++ {
		if err := sse.Encode(c.Writer, sse.Event{Data: h.frame(sequence)}); err != nil {
			logger.WithField("error", err.Error()).Debug("SSE write failed, closing stream")
			return
		}
		c.Writer.Flush()

		if h.maxEvents > 0 && sequence >= h.maxEvents {
			return
		}

		select {
		case <-clientGone:
			logger.Debug("SSE client disconnected")
			return
		case <-ticker.C:
		}
	}
}

func (h *StreamHandler) frame(sequence int) statusFrame {
	status := "ok"
	if !h.registry.Available() {
		status = "degraded"
	}
	return statusFrame{
		Status:     status,
		Sequence:   sequence,
		Connectors: len(h.registry.Enabled()),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderContainsStableAnchor(t *testing.T) {
	r := New()
	out := r.Render()

	assert.Contains(t, out, "connector_gateway_proxy_up 1")
	assert.Contains(t, out, "connector_gateway_upstream_retries_total 0")
	assert.Contains(t, out, "connector_gateway_sse_clients 0")
}

func TestCountersAccumulate(t *testing.T) {
	r := New()
	r.IncRequest("service_map")
	r.IncRequest("service_map")
	r.IncRequest("metrics")
	r.IncUpstreamRetry()
	r.AddSSEClient(1)

	out := r.Render()
	assert.Contains(t, out, `connector_gateway_requests_total{route="service_map"} 2`)
	assert.Contains(t, out, `connector_gateway_requests_total{route="metrics"} 1`)
	assert.Contains(t, out, "connector_gateway_upstream_retries_total 1")
	assert.Contains(t, out, "connector_gateway_sse_clients 1")
}

func TestProxyUpGauge(t *testing.T) {
	r := New()
	r.SetProxyUp(false)
	assert.Contains(t, r.Render(), "connector_gateway_proxy_up 0")
	r.SetProxyUp(true)
	assert.Contains(t, r.Render(), "connector_gateway_proxy_up 1")
}

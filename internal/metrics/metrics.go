// Package metrics keeps the gateway's counters and renders them in
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry holds the gateway metrics. Counters use atomics so they stay
// correct even if dispatch work runs on additional goroutines.
type Registry struct {
	mu            sync.Mutex
	requestCounts map[string]*atomic.Int64

	upstreamRetries atomic.Int64
	sseClients      atomic.Int64
	proxyUp         atomic.Int64
}

// New creates a metrics registry with the proxy subsystem marked up.
func New() *Registry {
	r := &Registry{
		requestCounts: make(map[string]*atomic.Int64),
	}
	r.proxyUp.Store(1)
	return r
}

// IncRequest counts one handled request for the named route.
func (r *Registry) IncRequest(route string) {
	r.mu.Lock()
	c, ok := r.requestCounts[route]
	if !ok {
		c = &atomic.Int64{}
		r.requestCounts[route] = c
	}
	r.mu.Unlock()
	c.Add(1)
}

// IncUpstreamRetry counts one retried outbound connector call.
func (r *Registry) IncUpstreamRetry() {
	r.upstreamRetries.Add(1)
}

// AddSSEClient adjusts the live SSE client gauge by delta.
func (r *Registry) AddSSEClient(delta int64) {
	r.sseClients.Add(delta)
}

// SetProxyUp sets the connector proxy subsystem up/down gauge.
func (r *Registry) SetProxyUp(up bool) {
	if up {
		r.proxyUp.Store(1)
	} else {
		r.proxyUp.Store(0)
	}
}

// Render writes the metrics in Prometheus text format. The
// connector_gateway_proxy_up line is the stable anchor scrapers key on.
func (r *Registry) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# TYPE connector_gateway_proxy_up gauge\n")
	fmt.Fprintf(&b, "connector_gateway_proxy_up %d\n", r.proxyUp.Load())

	r.mu.Lock()
	routes := make([]string, 0, len(r.requestCounts))
	for route := range r.requestCounts {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	fmt.Fprintf(&b, "# TYPE connector_gateway_requests_total counter\n")
	for _, route := range routes {
		fmt.Fprintf(&b, "connector_gateway_requests_total{route=%q} %d\n", route, r.requestCounts[route].Load())
	}
	r.mu.Unlock()

	fmt.Fprintf(&b, "# TYPE connector_gateway_upstream_retries_total counter\n")
	fmt.Fprintf(&b, "connector_gateway_upstream_retries_total %d\n", r.upstreamRetries.Load())

	fmt.Fprintf(&b, "# TYPE connector_gateway_sse_clients gauge\n")
	fmt.Fprintf(&b, "connector_gateway_sse_clients %d\n", r.sseClients.Load())

	return b.String()
}

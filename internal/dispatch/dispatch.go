// Package dispatch performs outbound HTTP calls to connector backends
// with bounded retries and advisory rate limiting.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/metrics"
	"golang.org/x/time/rate"
)

// Func is a synchronous dispatch function: send a request payload,
// receive the connector's raw response.
type Func func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)

// Result carries the outcome of an asynchronous dispatch.
type Result struct {
	Payload map[string]interface{}
	Err     error
}

// UpstreamError reports an outbound call that exhausted its retries or
// was rejected by the backend. Credential header values never appear in
// the message.
type UpstreamError struct {
	ConnectorID string
	Attempts    int
	Timeout     bool
	LastErr     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("connector %s unavailable after %d attempt(s): %v", e.ConnectorID, e.Attempts, e.LastErr)
}

func (e *UpstreamError) Unwrap() error { return e.LastErr }

// Options configures an HTTPDispatcher.
type Options struct {
	Timeout    time.Duration
	Retries    int
	Limiter    *rate.Limiter
	Metrics    *metrics.Registry
	HTTPClient *http.Client
}

// HTTPDispatcher POSTs JSON payloads to a single connector endpoint
// with its declared auth headers attached.
type HTTPDispatcher struct {
	connectorID string
	endpoint    string
	headers     map[string]string
	client      *http.Client
	retries     int
	limiter     *rate.Limiter
	metrics     *metrics.Registry
}

// NewHTTPDispatcher builds a dispatcher for one connector backend.
// headers are sent verbatim on every request and never logged.
func NewHTTPDispatcher(connectorID, endpoint string, headers map[string]string, opts Options) *HTTPDispatcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}
	return &HTTPDispatcher{
		connectorID: connectorID,
		endpoint:    endpoint,
		headers:     headers,
		client:      client,
		retries:     retries,
		limiter:     opts.Limiter,
		metrics:     opts.Metrics,
	}
}

// Dispatch sends the payload and decodes the JSON response. Transport
// errors, timeouts and 5xx responses are retried with exponential
// backoff; 4xx responses are not (retrying a client error won't help).
func (d *HTTPDispatcher) Dispatch(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, &UpstreamError{ConnectorID: d.connectorID, Attempts: 0, Timeout: true, LastErr: err}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dispatch payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if attempt > 1 {
			if d.metrics != nil {
				d.metrics.IncUpstreamRetry()
			}
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return nil, &UpstreamError{ConnectorID: d.connectorID, Attempts: attempt - 1, Timeout: true, LastErr: lastErr}
			}
		}

		result, retryable, err := d.attempt(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, &UpstreamError{ConnectorID: d.connectorID, Attempts: attempt, LastErr: err}
		}

		logger.WithFields(map[string]interface{}{
			"connector_id": d.connectorID,
			"attempt":      attempt,
			"error":        err.Error(),
		}).Warn("Connector dispatch attempt failed")
	}

	return nil, &UpstreamError{
		ConnectorID: d.connectorID,
		Attempts:    d.retries,
		Timeout:     errors.Is(lastErr, context.DeadlineExceeded),
		LastErr:     lastErr,
	}
}

// attempt performs a single POST. The second return value reports
// whether the failure is worth retrying.
func (d *HTTPDispatcher) attempt(ctx context.Context, body []byte) (map[string]interface{}, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range d.headers {
		req.Header.Set(name, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, false, fmt.Errorf("connector returned non-JSON response: %w", err)
		}
		return result, false, nil
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("connector returned status %d", resp.StatusCode)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("connector returned status %d", resp.StatusCode)
	}
}

// sleepBackoff waits 100ms doubled per prior attempt, or until ctx is done.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := 100 * time.Millisecond << (attempt - 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

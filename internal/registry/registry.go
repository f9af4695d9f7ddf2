// Package registry owns the loaded connector manifest: it filters
// enabled connectors, signs the public service map, and builds outbound
// proxies per connector.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cortexstack/connector-gateway/internal/dispatch"
	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/manifest"
	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/cortexstack/connector-gateway/internal/proxy"
	"github.com/cortexstack/connector-gateway/internal/signature"
	"golang.org/x/time/rate"
)

// ErrConnectorNotFound is returned when a proxy is requested for an id
// that is absent from the manifest or not enabled.
var ErrConnectorNotFound = errors.New("connector not found or not enabled")

// ErrUnavailable is returned when the manifest failed to load. Routes
// that need the registry answer 503 off this state.
var ErrUnavailable = errors.New("connector manifest unavailable")

// Options configures outbound proxy construction.
type Options struct {
	UpstreamTimeout time.Duration
	UpstreamRetries int
	Pool            *dispatch.Pool
	Metrics         *metrics.Registry
}

// Registry is the authoritative read-only view over the manifest. A
// manifest load failure is retained as state instead of crashing the
// process, so the server layer can keep answering health checks.
type Registry struct {
	signingSecret string
	opts          Options

	manifest *manifest.Manifest
	loadErr  error

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New loads the manifest eagerly from manifestPath. Load failures are
// captured, logged once, and surfaced through Available/Err.
func New(manifestPath, signingSecret string, opts Options) *Registry {
	r := &Registry{
		signingSecret: signingSecret,
		opts:          opts,
		limiters:      make(map[string]*rate.Limiter),
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		r.loadErr = err
		logger.WithFields(map[string]interface{}{
			"manifest_path": manifestPath,
			"error":         err.Error(),
		}).Error("Failed to load connector manifest")
		if opts.Metrics != nil {
			opts.Metrics.SetProxyUp(false)
		}
		return r
	}

	r.manifest = m
	logger.WithFields(map[string]interface{}{
		"manifest_path": manifestPath,
		"connectors":    len(m.Connectors),
		"enabled":       len(r.Enabled()),
	}).Info("Connector manifest loaded")
	return r
}

// Available reports whether the manifest loaded successfully.
func (r *Registry) Available() bool {
	return r.loadErr == nil
}

// Err returns the retained manifest load failure, or nil.
func (r *Registry) Err() error {
	return r.loadErr
}

// Enabled returns only entries with status "enabled", in manifest
// order. The returned slice is a copy; the manifest is never mutated.
func (r *Registry) Enabled() []manifest.Entry {
	if r.manifest == nil {
		return nil
	}
	var enabled []manifest.Entry
	for _, e := range r.manifest.Connectors {
		if e.Enabled() {
			enabled = append(enabled, e)
		}
	}
	return enabled
}

// TTLSeconds returns the manifest cache lifetime hint, or 0 when the
// manifest is unavailable.
func (r *Registry) TTLSeconds() uint {
	if r.manifest == nil {
		return 0
	}
	return r.manifest.TTLSeconds()
}

// ServiceMap builds the signed, public-safe projection of the enabled
// connectors. Auth header values are stripped; disabled and preview
// connectors never appear. The signature covers every field except
// itself.
func (r *Registry) ServiceMap() (*models.ServiceMapPayload, error) {
	if r.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.loadErr)
	}

	enabled := r.Enabled()
	connectors := make([]models.PublicConnector, 0, len(enabled))
	for _, e := range enabled {
		connectors = append(connectors, publicProjection(e))
	}

	payload := &models.ServiceMapPayload{
		Metadata: models.ServiceMapMetadata{
			Version:     r.manifest.SchemaVersion,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Count:       len(connectors),
		},
		Connectors: connectors,
	}

	sig, err := signPayload(payload, r.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign service map: %w", err)
	}
	payload.Signature = sig
	return payload, nil
}

// signPayload computes the signature over the payload minus its
// Signature field, via the same canonical JSON form clients recompute.
func signPayload(p *models.ServiceMapPayload, secret string) (string, error) {
	unsigned := struct {
		Metadata   models.ServiceMapMetadata `json:"metadata"`
		Connectors []models.PublicConnector  `json:"connectors"`
	}{p.Metadata, p.Connectors}

	data, err := json.Marshal(unsigned)
	if err != nil {
		return "", err
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(data, &asMap); err != nil {
		return "", err
	}
	return signature.Sign(asMap, secret)
}

// publicProjection strips credentials from an entry: header values go,
// header names, scopes, quotas and metadata stay.
func publicProjection(e manifest.Entry) models.PublicConnector {
	headers := make([]models.PublicAuthHeader, 0, len(e.Authentication.Headers))
	for _, h := range e.Authentication.Headers {
		headers = append(headers, models.PublicAuthHeader{Name: h.Name})
	}
	scopes := e.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return models.PublicConnector{
		ID:          e.ID,
		Version:     e.Version,
		Status:      e.Status,
		Description: e.Description,
		AuthHeaders: headers,
		Scopes:      scopes,
		Quotas: models.PublicQuota{
			PerMinute: e.Quotas.PerMinute,
			PerHour:   e.Quotas.PerHour,
			PerDay:    e.Quotas.PerDay,
		},
		TTLSeconds: e.TTLSeconds,
		Metadata:   e.Metadata,
	}
}

// entry returns the enabled entry for id, or ErrConnectorNotFound.
func (r *Registry) entry(id string) (*manifest.Entry, error) {
	if r.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.loadErr)
	}
	for i := range r.manifest.Connectors {
		e := &r.manifest.Connectors[i]
		if e.ID == id {
			if !e.Enabled() {
				return nil, ErrConnectorNotFound
			}
			return e, nil
		}
	}
	return nil, ErrConnectorNotFound
}

// dispatcher builds the outbound HTTP dispatcher for an enabled entry.
// The endpoint comes from the entry's metadata.
func (r *Registry) dispatcher(e *manifest.Entry) (*dispatch.HTTPDispatcher, error) {
	endpoint, _ := e.Metadata["endpoint"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("connector %s has no endpoint configured", e.ID)
	}

	headers := make(map[string]string, len(e.Authentication.Headers))
	for _, h := range e.Authentication.Headers {
		headers[h.Name] = h.Value
	}

	return dispatch.NewHTTPDispatcher(e.ID, endpoint, headers, dispatch.Options{
		Timeout: r.opts.UpstreamTimeout,
		Retries: r.opts.UpstreamRetries,
		Limiter: r.limiterFor(e),
		Metrics: r.opts.Metrics,
	}), nil
}

// limiterFor returns the per-connector outbound limiter derived from
// the entry's per-minute quota. Limiters are shared across proxies for
// the same connector.
func (r *Registry) limiterFor(e *manifest.Entry) *rate.Limiter {
	if e.Quotas.PerMinute == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if lim, ok := r.limiters[e.ID]; ok {
		return lim
	}
	perSecond := rate.Limit(float64(e.Quotas.PerMinute) / 60.0)
	lim := rate.NewLimiter(perSecond, int(e.Quotas.PerMinute))
	r.limiters[e.ID] = lim
	return lim
}

// InstructorProxy builds a synchronous validated proxy for the enabled
// connector id.
func (r *Registry) InstructorProxy(id string) (*proxy.JSONProxy, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	d, err := r.dispatcher(e)
	if err != nil {
		return nil, err
	}
	return proxy.NewSync(d.Dispatch), nil
}

// AsyncInstructorProxy builds a proxy whose dispatches run on the
// registry's worker pool.
func (r *Registry) AsyncInstructorProxy(id string) (*proxy.JSONProxy, error) {
	if r.opts.Pool == nil {
		return r.InstructorProxy(id)
	}
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	d, err := r.dispatcher(e)
	if err != nil {
		return nil, err
	}
	return proxy.NewAsync(r.opts.Pool.Async(d.Dispatch)), nil
}

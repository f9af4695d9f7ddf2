package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cortexstack/connector-gateway/internal/metrics"
	"github.com/cortexstack/connector-gateway/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "registry-signing-secret"

const testManifest = `{
	"schema_version": "1.0.0",
	"generated_at": "2025-01-01T00:00:00Z",
	"connectors": [
		{
			"id": "alpha",
			"version": "1.0.0",
			"status": "enabled",
			"description": "Alpha connector",
			"authentication": {"headers": [{"name": "X-Alpha-Key", "value": "alpha-credential-value"}]},
			"scopes": ["tasks:read"],
			"quotas": {"per_minute": 120, "per_hour": 1000},
			"ttl_seconds": 3600,
			"metadata": {"endpoint": "http://alpha.internal/invoke"}
		},
		{
			"id": "beta",
			"version": "2.0.0",
			"status": "disabled",
			"authentication": {"headers": [{"name": "X-Beta-Key", "value": "beta-credential-value"}]},
			"scopes": ["tasks:write"],
			"quotas": {"per_minute": 60, "per_hour": 500},
			"ttl_seconds": 600
		},
		{
			"id": "gamma",
			"version": "0.3.0",
			"status": "preview",
			"authentication": {"headers": [{"name": "X-Gamma-Key", "value": "gamma-credential-value"}]},
			"scopes": [],
			"quotas": {"per_minute": 10, "per_hour": 100},
			"ttl_seconds": 60
		}
	]
}`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o600))
	return New(path, testSecret, Options{
		UpstreamTimeout: time.Second,
		UpstreamRetries: 1,
		Metrics:         metrics.New(),
	})
}

func TestEnabledFiltersAndPreservesOrder(t *testing.T) {
	reg := newTestRegistry(t)
	require.True(t, reg.Available())

	enabled := reg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "alpha", enabled[0].ID)
}

func TestServiceMapExcludesNonEnabled(t *testing.T) {
	reg := newTestRegistry(t)

	payload, err := reg.ServiceMap()
	require.NoError(t, err)

	require.Len(t, payload.Connectors, 1)
	assert.Equal(t, "alpha", payload.Connectors[0].ID)
	assert.Equal(t, 1, payload.Metadata.Count)
	assert.Equal(t, "1.0.0", payload.Metadata.Version)
	assert.NotEmpty(t, payload.Signature)
}

func TestServiceMapStripsCredentialValues(t *testing.T) {
	reg := newTestRegistry(t)

	payload, err := reg.ServiceMap()
	require.NoError(t, err)

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	body := string(data)
	assert.NotContains(t, body, "alpha-credential-value")
	assert.NotContains(t, body, "beta-credential-value")
	assert.NotContains(t, body, "gamma-credential-value")

	// Header names survive the projection
	assert.Contains(t, body, "X-Alpha-Key")
	assert.Contains(t, body, "tasks:read")
}

func TestServiceMapSignatureVerifies(t *testing.T) {
	reg := newTestRegistry(t)

	payload, err := reg.ServiceMap()
	require.NoError(t, err)

	// Recompute the signature over the payload minus its signature
	// field, as an external client would.
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	var asMap map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &asMap))

	sig, ok := asMap["signature"].(string)
	require.True(t, ok)
	delete(asMap, "signature")

	assert.True(t, signature.Verify(asMap, sig, testSecret))
	assert.False(t, signature.Verify(asMap, sig, "wrong-secret"))
}

func TestTTLSecondsIsMaxOverConnectors(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Equal(t, uint(3600), reg.TTLSeconds())
}

func TestInstructorProxyUnknownConnector(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.InstructorProxy("nope")
	assert.ErrorIs(t, err, ErrConnectorNotFound)
}

func TestInstructorProxyDisabledConnector(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.InstructorProxy("beta")
	assert.ErrorIs(t, err, ErrConnectorNotFound)

	_, err = reg.InstructorProxy("gamma")
	assert.ErrorIs(t, err, ErrConnectorNotFound)
}

func TestInstructorProxyEnabledConnector(t *testing.T) {
	reg := newTestRegistry(t)

	p, err := reg.InstructorProxy("alpha")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestInstructorProxyMissingEndpoint(t *testing.T) {
	manifest := strings.Replace(testManifest, `"metadata": {"endpoint": "http://alpha.internal/invoke"}`, `"metadata": {}`, 1)
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	reg := New(path, testSecret, Options{UpstreamTimeout: time.Second, UpstreamRetries: 1})

	_, err := reg.InstructorProxy("alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint configured")
}

func TestLimiterForZeroQuotaConnector(t *testing.T) {
	manifest := strings.Replace(testManifest, `"quotas": {"per_minute": 120, "per_hour": 1000}`, `"quotas": {"per_minute": 0, "per_hour": 0}`, 1)
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	reg := New(path, testSecret, Options{UpstreamTimeout: time.Second, UpstreamRetries: 1})
	require.True(t, reg.Available())

	e, err := reg.entry("alpha")
	require.NoError(t, err)

	// A zero per-minute budget disables outbound limiting entirely
	assert.Nil(t, reg.limiterFor(e))

	// And the connector is still dispatchable
	p, err := reg.InstructorProxy("alpha")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRegistryRetainsLoadFailure(t *testing.T) {
	reg := New(filepath.Join(t.TempDir(), "missing.json"), testSecret, Options{})

	assert.False(t, reg.Available())
	assert.Error(t, reg.Err())
	assert.Nil(t, reg.Enabled())
	assert.Equal(t, uint(0), reg.TTLSeconds())

	_, err := reg.ServiceMap()
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = reg.InstructorProxy("alpha")
	assert.ErrorIs(t, err, ErrUnavailable)
}

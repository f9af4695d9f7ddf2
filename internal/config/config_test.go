package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_SIGNING_SECRET", "sign-secret")
	t.Setenv("GATEWAY_API_KEY", "api-key")
	t.Setenv("GATEWAY_NO_AUTH", "")
	t.Setenv("GATEWAY_JWT_SECRET", "")
	t.Setenv("GATEWAY_CONFIG_FILE", "")
}

func TestNewAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("GATEWAY_MANIFEST_PATH", "")

	cfg := New()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "connectors.manifest.json", cfg.ManifestPath)
	assert.Equal(t, 5*time.Second, cfg.SSEInterval)
	assert.Equal(t, 0, cfg.SSEMaxEvents)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 3, cfg.UpstreamRetries)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
}

func TestNewReadsEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("GATEWAY_MANIFEST_PATH", "/etc/gateway/manifest.json")
	t.Setenv("GATEWAY_SSE_MAX_EVENTS", "5")
	t.Setenv("GATEWAY_METRICS_ENABLED", "false")

	cfg := New()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "/etc/gateway/manifest.json", cfg.ManifestPath)
	assert.Equal(t, 5, cfg.SSEMaxEvents)
	assert.False(t, cfg.MetricsEnabled)
}

func TestNewPanicsWithoutSigningSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GATEWAY_SIGNING_SECRET", "")

	assert.Panics(t, func() { New() })
}

func TestNewPanicsWithoutAnyAuthMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GATEWAY_API_KEY", "")

	assert.Panics(t, func() { New() })
}

func TestNoAuthSkipsAPIKeyRequirement(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GATEWAY_API_KEY", "")
	t.Setenv("GATEWAY_NO_AUTH", "true")

	cfg := New()
	assert.True(t, cfg.NoAuth)
}

func TestYAMLOverlayAndEnvPrecedence(t *testing.T) {
	setRequiredEnv(t)

	overlayPath := filepath.Join(t.TempDir(), "gateway.yaml")
	overlay := "port: \"7777\"\nmanifest_path: /from/overlay/manifest.json\ndashboard_dir: /from/overlay/dist\n"
	require.NoError(t, os.WriteFile(overlayPath, []byte(overlay), 0o600))

	t.Setenv("GATEWAY_CONFIG_FILE", overlayPath)
	t.Setenv("PORT", "")
	t.Setenv("GATEWAY_MANIFEST_PATH", "/from/env/manifest.json")
	t.Setenv("GATEWAY_DASHBOARD_DIR", "")

	cfg := New()

	// Env wins over overlay; overlay wins over default
	assert.Equal(t, "/from/env/manifest.json", cfg.ManifestPath)
	assert.Equal(t, "7777", cfg.Port)
	assert.Equal(t, "/from/overlay/dist", cfg.DashboardDir)
}

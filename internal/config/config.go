package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all gateway configuration
type Config struct {
	// Server configuration
	Port     string
	LogLevel string

	// Manifest and signing
	ManifestPath  string
	SigningSecret string

	// Authentication
	APIKey    string
	NoAuth    bool
	JWTSecret string

	// Dashboard bundle
	DashboardDir  string
	DashboardPath string

	// SSE stream
	SSEInterval  time.Duration
	SSEMaxEvents int

	// Metrics
	MetricsEnabled bool

	// Inbound rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Outbound connector calls
	UpstreamTimeout time.Duration
	UpstreamRetries int
}

// fileOverlay mirrors the optional YAML config file. Env vars always win
// over values loaded from the file.
type fileOverlay struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"log_level"`
	ManifestPath  string `yaml:"manifest_path"`
	DashboardDir  string `yaml:"dashboard_dir"`
	DashboardPath string `yaml:"dashboard_path"`
}

// New creates a new Config instance by loading environment variables
// from .env file (if present), an optional YAML overlay file, and the
// OS environment. OS environment variables take precedence.
// Panics if required configuration values are missing or invalid.
func New() *Config {
	// Load .env from the working directory (silently ignore if not found)
	envPath := filepath.Join(".", ".env")
	_ = godotenv.Load(envPath)

	overlay := loadOverlay(os.Getenv("GATEWAY_CONFIG_FILE"))

	cfg := &Config{
		Port:     getEnvOrOverlay("PORT", overlay.Port, "8080"),
		LogLevel: getEnvOrOverlay("LOG_LEVEL", overlay.LogLevel, "INFO"),

		ManifestPath:  getEnvOrOverlay("GATEWAY_MANIFEST_PATH", overlay.ManifestPath, "connectors.manifest.json"),
		SigningSecret: os.Getenv("GATEWAY_SIGNING_SECRET"),

		APIKey:    os.Getenv("GATEWAY_API_KEY"),
		NoAuth:    getEnvBool("GATEWAY_NO_AUTH", false),
		JWTSecret: os.Getenv("GATEWAY_JWT_SECRET"),

		DashboardDir:  getEnvOrOverlay("GATEWAY_DASHBOARD_DIR", overlay.DashboardDir, "dashboard/dist"),
		DashboardPath: getEnvOrOverlay("GATEWAY_DASHBOARD_PATH", overlay.DashboardPath, "/dashboard"),

		SSEInterval:  time.Duration(getEnvInt("GATEWAY_SSE_INTERVAL_MS", 5000)) * time.Millisecond,
		SSEMaxEvents: getEnvInt("GATEWAY_SSE_MAX_EVENTS", 0),

		MetricsEnabled: getEnvBool("GATEWAY_METRICS_ENABLED", true),

		RateLimitRPS:   getEnvFloat("GATEWAY_RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvInt("GATEWAY_RATE_LIMIT_BURST", 100),

		UpstreamTimeout: time.Duration(getEnvInt("GATEWAY_UPSTREAM_TIMEOUT_MS", 10000)) * time.Millisecond,
		UpstreamRetries: getEnvInt("GATEWAY_UPSTREAM_RETRIES", 3),
	}

	cfg.validate()

	return cfg
}

// validate checks that all required configuration values are present and valid
func (c *Config) validate() {
	var missing []string

	if c.SigningSecret == "" {
		missing = append(missing, "GATEWAY_SIGNING_SECRET")
	}
	if !c.NoAuth && c.APIKey == "" && c.JWTSecret == "" {
		missing = append(missing, "GATEWAY_API_KEY (or GATEWAY_JWT_SECRET, or set GATEWAY_NO_AUTH=true)")
	}

	if len(missing) > 0 {
		panic(fmt.Sprintf("Missing required configuration values: %v", missing))
	}

	if c.SSEInterval <= 0 {
		panic(fmt.Sprintf("GATEWAY_SSE_INTERVAL_MS must be positive (got %d)", c.SSEInterval/time.Millisecond))
	}
	if c.UpstreamRetries < 1 {
		panic(fmt.Sprintf("GATEWAY_UPSTREAM_RETRIES must be at least 1 (got %d)", c.UpstreamRetries))
	}
}

// loadOverlay reads the optional YAML config file. A missing or empty
// path yields a zero overlay.
func loadOverlay(path string) fileOverlay {
	var overlay fileOverlay
	if path == "" {
		return overlay
	}
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("Failed to read config file %s: %v", path, err))
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		panic(fmt.Sprintf("Failed to parse config file %s: %v", path, err))
	}
	return overlay
}

// getEnvOrOverlay returns the env value, then the overlay value, then
// the default.
func getEnvOrOverlay(key, overlayValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if overlayValue != "" {
		return overlayValue
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloat returns a float environment variable or a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

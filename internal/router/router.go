package router

import (
	"net/http"
	"os"

	"github.com/cortexstack/connector-gateway/internal/auth"
	"github.com/cortexstack/connector-gateway/internal/config"
	"github.com/cortexstack/connector-gateway/internal/handlers"
	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/middleware"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Handlers bundles the route handlers the router composes.
type Handlers struct {
	Health     *handlers.HealthHandler
	ServiceMap *handlers.ServiceMapHandler
	Stream     *handlers.StreamHandler
	Invoke     *handlers.InvokeHandler
	Metrics    *handlers.MetricsHandler
}

// Setup configures and returns the gateway router
func Setup(cfg *config.Config, authenticator *auth.Authenticator, h Handlers) *gin.Engine {

	router := gin.New()

	// Unhandled panics become structured 500s instead of crashing the
	// process
	router.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(map[string]interface{}{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		}).Error("Recovered from panic in route handler")
		resp := models.NewError("internal_error", "Internal server error")
		resp.RequestID = middleware.GetRequestID(c)
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	}))

	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router.Use(middleware.RateLimit(limiter))

	// Health is deliberately unauthenticated and manifest-independent
	router.GET("/health", h.Health.Check)

	// Everything else sits behind the authenticator
	protected := router.Group("/", middleware.Authentication(authenticator))

	protected.GET("/v1/connectors/service-map", h.ServiceMap.Get)
	protected.GET("/v1/connectors/stream", h.Stream.Get)
	protected.POST("/v1/connectors/:id/invoke", h.Invoke.Post)
	protected.GET("/metrics", h.Metrics.Get)

	// Dashboard bundle: static serve when built, self-describing 500
	// otherwise
	if info, err := os.Stat(cfg.DashboardDir); err == nil && info.IsDir() {
		protected.Static(cfg.DashboardPath, cfg.DashboardDir)
		logger.WithFields(map[string]interface{}{
			"path": cfg.DashboardPath,
			"dir":  cfg.DashboardDir,
		}).Info("Dashboard bundle mounted")
	} else {
		missing := handlers.DashboardMissing(cfg.DashboardDir)
		protected.GET(cfg.DashboardPath, missing)
		protected.GET(cfg.DashboardPath+"/*filepath", missing)
		logger.WithField("dir", cfg.DashboardDir).Warn("Dashboard bundle directory missing, serving diagnostic route")
	}

	return router
}

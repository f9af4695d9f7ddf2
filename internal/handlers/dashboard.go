package handlers

import (
	"fmt"
	"net/http"

	"github.com/cortexstack/connector-gateway/internal/middleware"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/gin-gonic/gin"
)

// DashboardMissing returns the diagnostic handler registered under the
// dashboard prefix when the configured bundle directory does not exist.
// A missing build artifact should be self-describing, not a framework
// 404.
func DashboardMissing(bundleDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "dashboard_bundle_missing",
			"message":  fmt.Sprintf("Dashboard bundle directory %q does not exist", bundleDir),
			"provider": models.Provider,
			"remediation": gin.H{
				"build_command": "npm run build --prefix dashboard",
				"env_var":       "GATEWAY_DASHBOARD_DIR",
			},
			"request_id": middleware.GetRequestID(c),
		})
	}
}

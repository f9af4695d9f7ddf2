package middleware

import (
	"github.com/cortexstack/connector-gateway/internal/auth"
	"github.com/cortexstack/connector-gateway/internal/logger"
	"github.com/cortexstack/connector-gateway/internal/models"
	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key the verified identity is stored
// under in JWT mode.
const IdentityKey = "identity"

// Authentication validates the bearer credential on every request in
// the group. Failures abort with the stable error shape and the status
// carried by the auth error (401 missing, 403 wrong token).
func Authentication(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(c.Request)
		if err != nil {
			authErr, ok := err.(*auth.Error)
			if !ok {
				authErr = auth.ErrForbidden
			}
			logger.WithFields(map[string]interface{}{
				"path":   c.Request.URL.Path,
				"status": authErr.Status,
			}).Warn("Authentication failed")

			resp := models.NewError(authErr.Code, authErr.Message)
			resp.RequestID = GetRequestID(c)
			c.AbortWithStatusJSON(authErr.Status, resp)
			return
		}

		if identity != nil {
			c.Set(IdentityKey, identity)
		}
		c.Next()
	}
}

// GetIdentity returns the verified identity attached by Authentication,
// or nil outside JWT mode.
func GetIdentity(c *gin.Context) *auth.IdentityContext {
	if v, ok := c.Get(IdentityKey); ok {
		if ic, ok := v.(*auth.IdentityContext); ok {
			return ic
		}
	}
	return nil
}

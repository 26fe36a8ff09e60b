package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/service"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
	"github.com/noah-isme/preicfes-api/pkg/response"
)

// RequireCapability lets the request through when the caller holds any of
// the listed capabilities.
func RequireCapability(required ...service.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserKey); !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		caps := CapabilitiesFrom(c)
		for _, capability := range required {
			if caps.Can(capability) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

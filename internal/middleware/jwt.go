package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
	"github.com/noah-isme/preicfes-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextCapabilitiesKey stores the capabilities resolved from the claims.
	ContextCapabilitiesKey = "currentCapabilities"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token and resolves the
// caller's capabilities through the policy.
func JWT(tokens tokenValidator, policy *service.Policy) gin.HandlerFunc {
	if policy == nil {
		policy = service.NewPolicy()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextCapabilitiesKey, policy.For(claims))
		c.Next()
	}
}

// CapabilitiesFrom returns the capabilities attached by JWT. Requests that did
// not pass through it get an empty set with no visibility.
func CapabilitiesFrom(c *gin.Context) service.Capabilities {
	if value, ok := c.Get(ContextCapabilitiesKey); ok {
		if caps, ok := value.(service.Capabilities); ok {
			return caps
		}
	}
	return service.NewPolicy().For(nil)
}

// Package middleware holds the gin middleware chain: authentication,
// request logging, panic recovery and CORS.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collab-todo-backend-go/internal/models"
	"collab-todo-backend-go/internal/session"
)

// identityKey is the gin context key the verified identity is stored
// under.
const identityKey = "identity"

// Auth verifies the bearer ID token on every request and stores the
// resulting identity in the gin context. Requests without a valid token
// are rejected with 401 before reaching any handler.
func Auth(verifier *session.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be 'Bearer {token}'"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			// Verification details stay server-side.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired authentication token"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the verified identity stored by Auth, or nil on
// an unauthenticated route.
func IdentityFrom(c *gin.Context) *models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}

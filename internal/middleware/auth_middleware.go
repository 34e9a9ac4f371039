package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	tokens "github.com/ArowuTest/etherlotto-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// IdentityKey is the gin context key holding the authenticated models.Identity
const IdentityKey = "identity"

// TokenVerifier resolves a bearer token to the identity it was issued for
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTAuthMiddleware authenticates the caller from the Authorization header and
// stores its identity under IdentityKey. Handlers never read identity from the body.
func JWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const BearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			slog.Warn("JWTAuthMiddleware: Authorization header is missing", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "code": "unauthorized"})
			return
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			slog.Warn("JWTAuthMiddleware: Authorization header format is invalid", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer ", "code": "unauthorized"})
			return
		}

		identity, err := verifier.Verify(strings.TrimSpace(authHeader[len(BearerSchema):]))
		if err != nil {
			slog.Warn("JWTAuthMiddleware: token rejected", "error", err)
			msg := "Invalid token"
			if errors.Is(err, tokens.ErrTokenExpired) {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
			return
		}

		c.Set(IdentityKey, models.Identity(identity))
		c.Next()
	}
}

// IdentityFrom returns the identity set by JWTAuthMiddleware, or "" when absent
func IdentityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return ""
}

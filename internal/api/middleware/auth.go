package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realestate/server/internal/apperr"
	"realestate/server/internal/auth"
)

const (
	ContextKeyUserID  = "userID"
	ContextKeyIsStaff = "isStaff"
)

// TokenValidator resolves a bearer token into the caller's claims
type TokenValidator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware rejects requests without a valid bearer token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := validator.Authenticate(c.Request.Context(), token)
		if apperr.KindOf(err) == apperr.KindDependency {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to authenticate"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyIsStaff, claims.IsStaff)
		c.Next()
	}
}

// OptionalAuth records the principal when a valid token is present and
// lets anonymous requests through otherwise
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := validator.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(ContextKeyUserID, claims.UserID)
				c.Set(ContextKeyIsStaff, claims.IsStaff)
			}
		}
		c.Next()
	}
}

// StaffOnly must run after AuthMiddleware
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextKeyIsStaff) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff privileges required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user id, if any
func CurrentUser(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func IsStaff(c *gin.Context) bool {
	return c.GetBool(ContextKeyIsStaff)
}

// Package http wires the REST surface and the websocket endpoint onto gin.
package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khadijauser/chat-app/internal/auth"
	"github.com/khadijauser/chat-app/internal/domain"
)

const (
	ctxUserID   = "userId"
	ctxUsername = "username"
)

// RequireAuth verifies the bearer token (or, for websocket clients that
// cannot set headers, the token query parameter) and stores the verified
// identity in the request context.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		} else {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set(ctxUserID, string(claims.UserID()))
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// Identity returns the verified identity RequireAuth stored.
func Identity(c *gin.Context) (domain.UserID, string) {
	return domain.UserID(c.GetString(ctxUserID)), c.GetString(ctxUsername)
}

// CORS is the permissive policy the original app shipped with; the API is
// consumed by a separately served frontend.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"notes_marketplace/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the auth middlewares
const (
	UserIDKey  = "userID"  // uint id of the authenticated user
	IsAdminKey = "isAdmin" // bool set by AdminOnlyMiddleware
)

// bearerToken extracts the token from an Authorization header, empty when absent or malformed
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")) // Extract the token string
}

// JWTAuthMiddleware validates JWT tokens and extracts user information
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		// Check if the Authorization header is present and properly formatted
		if tokenStr == "" {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil || claims.UserID == 0 {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Next()                        // Proceed to the next handler
	}
}

// OptionalJWT identifies the caller when a valid token is sent and lets anonymous requests through
func OptionalJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := bearerToken(c); tokenStr != "" {
			// A bad token is treated like no token on public routes
			if claims, err := utils.ParseJWT(tokenStr, secret); err == nil && claims.UserID != 0 {
				c.Set(UserIDKey, claims.UserID) // Store userID in context
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id, zero for anonymous requests
func UserID(c *gin.Context) uint {
	id, _ := c.Get(UserIDKey)
	uid, _ := id.(uint)
	return uid
}

package middleware

import (
	"net/http" // Status codes and MaxBytesReader

	"github.com/gin-gonic/gin" // Gin web framework
)

// BodyLimit caps the request body at limit bytes. Declared oversized bodies are
// refused before any handler runs; streamed ones fail on the first read past the limit.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
)

// CORS lets the storefront call the API from another origin. Guest session,
// passive polling and request id headers must be allowed and exposed.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID, X-Guest-Session, X-Passive")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Guest-Session")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

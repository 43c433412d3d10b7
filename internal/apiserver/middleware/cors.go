package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/amoylab/rowgate/internal/common/config"

	"github.com/gin-gonic/gin"
)

// CORS sets the configured CORS headers on every response and answers
// OPTIONS preflights with 204.
func CORS(cors *config.CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cors.AllowOrigins, "*")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(cors.AllowOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		if len(cors.AllowMethods) > 0 {
			c.Header("Access-Control-Allow-Methods", strings.Join(cors.AllowMethods, ", "))
		}
		if len(cors.AllowHeaders) > 0 {
			c.Header("Access-Control-Allow-Headers", strings.Join(cors.AllowHeaders, ", "))
		}
		if len(cors.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(cors.ExposeHeaders, ", "))
		}
		// browsers refuse credentials with a wildcard origin
		if cors.AllowCredentials && !wildcard {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

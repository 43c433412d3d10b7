package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/amoylab/rowgate/internal/common/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminSecretMiddleware admits requests carrying "Authorization: Bearer <secret>".
// With no secret configured every request is rejected.
func AdminSecretMiddleware(secret string, logger *zap.Logger, errHandler *errorx.ErrorHandler) gin.HandlerFunc {
	logger = logger.Named("admin-auth")
	return func(c *gin.Context) {
		if secret == "" {
			logger.Error("admin secret is not configured, rejecting admin request",
				zap.String("path", c.Request.URL.Path))
			errHandler.HandleError(c, errorx.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			errHandler.HandleError(c, errorx.ErrUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			errHandler.HandleError(c, errorx.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

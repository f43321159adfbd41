package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/utils"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with one structured entry.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery

		ctx.Next()

		entry := logger.WithFields(logrus.Fields{
			"status":  ctx.Writer.Status(),
			"method":  ctx.Request.Method,
			"path":    path,
			"query":   query,
			"ip":      ctx.ClientIP(),
			"latency": time.Since(start).String(),
		})

		if claims, err := utils.CurrentClaims(ctx); err == nil {
			entry = entry.WithField("user_id", claims.UserID)
		}

		switch {
		case ctx.Writer.Status() >= 500:
			entry.Error("request")
		case ctx.Writer.Status() >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

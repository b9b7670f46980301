package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"go.uber.org/zap"
)

// Logger logs one line per request, at a level chosen by status code
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		l := log.Ctx(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("Server error", fields...)
		case status >= 400:
			l.Warn("Client error", fields...)
		default:
			l.Info("Request completed", fields...)
		}
	}
}

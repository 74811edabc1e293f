package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/pkg/schema"
)

// accessLog tags the request with an id, echoed in X-Request-Id, and logs
// it once it completes. Server errors are logged at Error.
func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(schema.HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(schema.HeaderRequestID, id)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
		}
		if t := tenantHeader(c.Request); t != "" {
			fields = append(fields, zap.String("tenant", t))
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, zap.Error(err.Err))
		}

		if status >= 500 {
			h.Logger.Error("Request failed", fields...)
			return
		}
		h.Logger.Info("Request", fields...)
	}
}

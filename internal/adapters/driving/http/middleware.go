package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// RequestLog logs one line per request at debug level.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http: %s %s %d %s",
			c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

package middleware

import (
	"time"

	"sketchroom/internal/infrastructure/monitoring"
	"sketchroom/pkg/logger"
	"sketchroom/pkg/utils"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware tags each request with an id, logs it on completion
// and records it in the collector when one is given.
func RequestLoggerMiddleware(cl *logger.ContextLogger, collector *monitoring.PrometheusCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithValues(c.Request.Context(), requestID, ""))

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		ctx := c.Request.Context()
		if user, ok := CurrentUser(c); ok {
			ctx = logger.WithValues(ctx, "", string(user.ID))
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		cl.LogRequest(ctx, c.Request.Method, route, c.Writer.Status(), elapsed.Milliseconds())
		if collector != nil {
			collector.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), elapsed.Seconds())
		}
	}
}

package middleware

import (
	"sketchroom/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens a span per request. Routes in untraced (the
// websocket endpoint) are skipped: their span would last as long as the socket.
func TracingMiddleware(untraced ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(untraced))
	for _, p := range untraced {
		skip[p] = true
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if skip[route] {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()
		span.SetAttributes(attribute.String("http.client_ip", c.ClientIP()))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		if user, ok := CurrentUser(c); ok {
			span.SetAttributes(tracing.UserIDKey.String(string(user.ID)))
		}
		if id := c.Param("id"); id != "" {
			span.SetAttributes(tracing.WhiteboardIDKey.String(id))
		}

		if len(c.Errors) > 0 {
			appErr := ToAppError(c.Errors.Last().Err)
			span.SetAttributes(attribute.String("app.error_code", string(appErr.Code)))
			span.SetStatus(codes.Error, appErr.Message)
		} else if c.Writer.Status() >= 500 {
			span.SetStatus(codes.Error, "")
		}
	}
}

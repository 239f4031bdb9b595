package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader echoes the request's trace id in the named response header so
// the console can quote it when reporting a failed save.
func TraceHeader(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if name != "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				c.Header(name, sc.TraceID().String())
			}
		}
		c.Next()
	}
}

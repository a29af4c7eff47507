package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/nudge/common/logger"
)

// Recovery turns a handler panic into a 500 carrying the request id, so a
// chat integration can quote it back. The log line picks up the request id
// and owner from the request's log fields; admin routes fall back to the
// :owner path parameter.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			ctx := c.Request.Context()
			fields := logger.GetLogFields(ctx)
			if fields.Owner == nil {
				if owner := c.Param("owner"); owner != "" {
					ctx = logger.WithLogFields(ctx, logger.LogFields{Owner: logger.Ptr(owner)})
				}
			}

			err := fmt.Errorf("panic: %v", rec)
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, "handler panic")

			slog.ErrorContext(ctx, "panic recovered in request handler",
				"error", err,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()))

			body := gin.H{"error": "internal server error"}
			if fields.RequestID != nil {
				body["request_id"] = *fields.RequestID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
